package main

import (
	"log"
	"os"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	telemetryddb "github.com/acmevideo/telemetry-fanout/telemetry-ddb"
	telemetryws "github.com/acmevideo/telemetry-fanout/telemetry-ws"
	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/urfave/cli/v2"
)

var service = telemetrycli.NewService("ws-handler")

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
	sess := session.Must(session.NewSession(aws.NewConfig()))
	api, err := telemetryddb.DynamoDBAPI(sess)
	if err != nil {
		return err
	}

	handler := &telemetryws.Handler{
		Connections: connectiondao.Build(api, telemetrycli.CommonOpts.Env),
		Logger:      telemetrycli.Logger(service),
	}

	lambda.Start(handler.HandleEvent)
	return nil
}
