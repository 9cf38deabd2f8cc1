package main

import (
	"context"
	"log"
	"os"
	"time"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	telemetryddb "github.com/acmevideo/telemetry-fanout/telemetry-ddb"
	telemetryreport "github.com/acmevideo/telemetry-fanout/telemetry-report"
	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"
)

var service = telemetrycli.NewService("registry-report")

type RegistryReport struct {
	GeneratedAt       string `json:"generated_at"`
	ActiveConnections int    `json:"active_connections"`
	OldestConnectedAt string `json:"oldest_connected_at,omitempty"`
	NewestConnectedAt string `json:"newest_connected_at,omitempty"`
}

func main() {
	app := telemetrycli.App(
		service,
		action,
		append(
			append(
				telemetrycli.CommonFlags,
				telemetryreport.ReportFlags...,
			),
			telemetryddb.DDBFlags...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	sess := session.Must(session.NewSession(aws.NewConfig()))
	api, err := telemetryddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}

	metrics := telemetrycli.NewMetrics(service, cloudwatch.New(sess))
	store := connectiondao.Build(api, telemetrycli.CommonOpts.Env)

	handler := telemetryreport.NewHandler(service, "registry-snapshot", func(ctx context.Context) (interface{}, error) {
		conns, err := store.ListActive(ctx)
		if err != nil {
			return nil, err
		}

		report := RegistryReport{
			GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
			ActiveConnections: len(conns),
		}
		for _, conn := range conns {
			if report.OldestConnectedAt == "" || conn.ConnectedAt < report.OldestConnectedAt {
				report.OldestConnectedAt = conn.ConnectedAt
			}
			if conn.ConnectedAt > report.NewestConnectedAt {
				report.NewestConnectedAt = conn.ConnectedAt
			}
		}

		metrics.Gauge(ctx, telemetrycli.ActiveConnectionsMetric, float64(len(conns)))
		return report, nil
	})
	return handler.Start()
}
