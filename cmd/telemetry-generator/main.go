package main

import (
	"context"
	"log"
	"os"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	telemetrycron "github.com/acmevideo/telemetry-fanout/telemetry-cron"
	telemetrygenerator "github.com/acmevideo/telemetry-fanout/telemetry-generator"
	"github.com/acmevideo/telemetry-fanout/telemetry-ws/publish"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var service = telemetrycli.NewService("telemetry-generator")

func main() {
	app := telemetrycli.App(
		service,
		action,
		append(
			telemetrycli.CommonFlags,
			telemetrygenerator.GeneratorFlags...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	sess := session.Must(session.NewSession(aws.NewConfig()))
	metrics := telemetrycli.NewMetrics(service, cloudwatch.New(sess))
	publisher := publish.Build(telemetrycli.CommonOpts.Env)
	generator := telemetrygenerator.New()

	handler := telemetrycron.NewHandler(service, func(ctx context.Context) error {
		batchSize := telemetrygenerator.GeneratorOpts.BatchSize
		events := generator.GenerateBatch(batchSize)

		batch := make([]interface{}, 0, len(events))
		for _, event := range events {
			batch = append(batch, event)
		}

		if telemetrycli.CommonOpts.Dry {
			zerolog.Ctx(ctx).Info().Int("count", len(batch)).Msg("dry run, skipping publish")
			return nil
		}

		sent, err := publisher.SendBatch(ctx, batch)
		metrics.Count(ctx, telemetrycli.EventsPublishedMetric, float64(sent))
		zerolog.Ctx(ctx).Info().Int("sent", sent).Int("generated", len(batch)).Msg("published telemetry batch")
		return err
	})
	return handler.Start()
}
