package main

import (
	"context"
	"log"
	"os"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	telemetryddb "github.com/acmevideo/telemetry-fanout/telemetry-ddb"
	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/urfave/cli/v2"
)

var service = telemetrycli.NewService("connection-metrics")

func main() {
	app := telemetrycli.App(
		service,
		action,
		append(
			telemetrycli.CommonFlags,
			telemetryddb.DDBFlags...,
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	if telemetryddb.DDBOpts.TableName == "" {
		telemetryddb.DDBOpts.TableName = connectiondao.TableName(telemetrycli.CommonOpts.Env)
	}

	sess := session.Must(session.NewSession(aws.NewConfig()))
	metrics := telemetrycli.NewMetrics(service, cloudwatch.New(sess))

	handler := telemetryddb.NewHandler(
		service,
		func(ctx context.Context, newValue map[string]*dynamodb.AttributeValue) error {
			var conn connectiondao.Connection
			if err := telemetryddb.ParseItem(newValue, &conn); err != nil {
				return err
			}
			logConnection("connection opened", conn)
			metrics.Count(ctx, telemetrycli.ConnectionsOpenedMetric, 1)
			return nil
		},
		func(ctx context.Context, oldValue map[string]*dynamodb.AttributeValue) error {
			var conn connectiondao.Connection
			if err := telemetryddb.ParseItem(oldValue, &conn); err != nil {
				return err
			}
			logConnection("connection closed", conn)
			metrics.Count(ctx, telemetrycli.ConnectionsClosedMetric, 1)
			return nil
		},
	)
	return handler.Start(context.Background())
}

func logConnection(msg string, conn connectiondao.Connection) {
	logger := telemetrycli.Logger(service)
	logger.Info().
		Str("connectionId", conn.ConnectionID).
		Str("connectedAt", conn.ConnectedAt).
		Msg(msg)
}
