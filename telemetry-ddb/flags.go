package telemetryddb

import (
	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/urfave/cli/v2"
)

var DDBOpts struct {
	DAXCluster string
	TableName  string
}

var DAXClusterFlag = telemetrycli.StringFlag("dax-cluster", "The DAX cluster to route DynamoDB reads through", &DDBOpts.DAXCluster)
var TableNameFlag = telemetrycli.StringFlag("table-name", "The table name to read streams from", &DDBOpts.TableName)

var DDBFlags = []cli.Flag{
	DAXClusterFlag,
	TableNameFlag,
}
