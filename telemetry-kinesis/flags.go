package telemetrykinesis

import (
	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/urfave/cli/v2"
)

var KinesisOpts struct {
	StreamName  string
	BatchSize   int
	Concurrency int
}

var StreamNameFlag = telemetrycli.StringFlag("stream-name", "The stream name to read telemetry events from", &KinesisOpts.StreamName)
var BatchSizeFlag = telemetrycli.IntFlag("batch-size", "Maximum events handed to one broadcast cycle", &KinesisOpts.BatchSize, DefaultBatchSize)
var ConcurrencyFlag = telemetrycli.IntFlag("concurrency", "Maximum concurrent deliveries within a cycle", &KinesisOpts.Concurrency, 50)

var KinesisFlags = []cli.Flag{
	StreamNameFlag,
	BatchSizeFlag,
	ConcurrencyFlag,
}
