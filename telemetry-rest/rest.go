// Package telemetryrest provides REST API utilities with CORS support and
// common middleware, served locally in console mode or wrapped for API
// Gateway in Lambda mode.
package telemetryrest

import (
	"fmt"
	"net/http"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/savaki/apigateway"
)

func Middlewares(service telemetrycli.Service, routes chi.Router) chi.Router {
	routes.Use(
		withCORS(),
		withLogger(telemetrycli.Logger(service)),
		middleware.Recoverer,
	)
	return routes
}

func Webserver(service telemetrycli.Service, routes chi.Router) error {
	logger := telemetrycli.Logger(service)

	if telemetrycli.CommonOpts.Console {
		logger.Info().Int("port", telemetrycli.CommonOpts.Port).Msg("starting http server")
		addr := fmt.Sprintf(":%v", telemetrycli.CommonOpts.Port)
		return http.ListenAndServe(addr, routes)
	}

	lambda.Start(apigateway.Wrap(routes, telemetrycli.CommonOpts.Env))
	return nil
}

func withCORS() func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	})
}

func withLogger(logger zerolog.Logger) func(handler http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := logger.WithContext(req.Context())
			req = req.WithContext(ctx)
			handler.ServeHTTP(w, req)
		})
	}
}
