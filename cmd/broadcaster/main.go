package main

import (
	"log"
	"os"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	telemetryddb "github.com/acmevideo/telemetry-fanout/telemetry-ddb"
	telemetrykinesis "github.com/acmevideo/telemetry-fanout/telemetry-kinesis"
	telemetryws "github.com/acmevideo/telemetry-fanout/telemetry-ws"
	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"
)

var service = telemetrycli.NewService("broadcaster")

func main() {
	app := telemetrycli.App(
		service,
		action,
		append(
			append(
				telemetrycli.CommonFlags,
				telemetrykinesis.KinesisFlags...,
			),
			telemetryddb.DDBFlags...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(c *cli.Context) error {
	sess := session.Must(session.NewSession(aws.NewConfig()))
	api, err := telemetryddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}

	metrics := telemetrycli.NewMetrics(service, cloudwatch.New(sess))

	dispatcher := &telemetryws.Dispatcher{
		Connections: connectiondao.Build(api, telemetrycli.CommonOpts.Env),
		Logger:      telemetrycli.Logger(service),
		Concurrency: telemetrykinesis.KinesisOpts.Concurrency,
		Metrics:     &metrics,
	}

	handler := telemetrykinesis.NewHandler(service, dispatcher)
	handler.Metrics = &metrics
	return handler.Start(c)
}
