// Package telemetrycron provides utilities for building scheduled Lambda
// functions (EventBridge rules), such as the synthetic telemetry generator.
package telemetrycron

import (
	"context"
	"encoding/json"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
)

type RunCallback func(ctx context.Context) error

type Handler struct {
	service telemetrycli.Service
	logger  zerolog.Logger

	runOnce RunCallback
}

func NewHandler(
	service telemetrycli.Service,
	runOnce RunCallback,
) *Handler {
	return &Handler{
		service: service,
		logger:  telemetrycli.Logger(service),
		runOnce: runOnce,
	}
}

func (h *Handler) RunOnce(ctx context.Context, _ json.RawMessage) error {
	h.logger.Info().Msg("running scheduled task")
	return h.runOnce(h.logger.WithContext(ctx))
}

func (h *Handler) Start() error {
	switch {
	case telemetrycli.CommonOpts.Console:
		return h.RunOnce(context.Background(), nil)

	default:
		lambda.Start(h.RunOnce)
	}
	return nil
}
