package telemetrygenerator

import (
	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/urfave/cli/v2"
)

var GeneratorOpts struct {
	BatchSize int
}

var BatchSizeFlag = telemetrycli.IntFlag("generator-batch-size", "Events to generate per run", &GeneratorOpts.BatchSize, 1000)

var GeneratorFlags = []cli.Flag{
	BatchSizeFlag,
}
