package main

import (
	"log"
	"os"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	telemetryddb "github.com/acmevideo/telemetry-fanout/telemetry-ddb"
	telemetryrest "github.com/acmevideo/telemetry-fanout/telemetry-rest"
	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/urfave/cli/v2"
)

var service = telemetrycli.NewService("registry-status")

func main() {
	app := telemetrycli.App(
		service,
		action,
		append(
			append(
				telemetrycli.CommonFlags,
				telemetrycli.PortFlag(5001),
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

	store := connectiondao.Build(api, telemetrycli.CommonOpts.Env)
	routes := telemetryrest.NewRouter(service, store)
	return telemetryrest.Webserver(service, routes)
}
