// Package telemetryreport writes scheduled JSON snapshot reports (registry
// size, connection ages) to S3 for operational review.
package telemetryreport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/rs/zerolog"
)

type GenerateCallback func(ctx context.Context) (interface{}, error)

type Handler struct {
	service telemetrycli.Service
	logger  zerolog.Logger
	s3      s3iface.S3API

	reportName string

	generate GenerateCallback
}

// ReportKey partitions reports by service, report name, day, and hour so
// listing a day's prefix finds every run.
func ReportKey(serviceName, reportName string, timestamp time.Time) string {
	return fmt.Sprintf("%v/%v/%v/%v/%v", serviceName, reportName, timestamp.Format("2006-01-02"), timestamp.Format("15"), timestamp.Format("2006-01-02-15:04:05.json"))
}

func NewHandler(
	service telemetrycli.Service,
	reportName string,
	generate GenerateCallback,
) *Handler {
	session := session.Must(session.NewSession(aws.NewConfig()))
	return &Handler{
		service:    service,
		logger:     telemetrycli.Logger(service),
		s3:         s3.New(session),
		reportName: reportName,
		generate:   generate,
	}
}

func (h *Handler) Generate(ctx context.Context, _ json.RawMessage) error {
	h.logger.Info().Str("report", h.reportName).Msg("generating report")
	report, err := h.generate(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to generate report")
		return err
	}
	reportBytes, err := json.Marshal(report)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to marshal report")
		return err
	}

	now := time.Now().UTC()
	if telemetrycli.CommonOpts.Dry {
		if ReportOpts.OutFile == "" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		h.logger.Info().Str("filename", ReportOpts.OutFile).Int("size", len(reportBytes)).Msg("dry run, saving report locally")
		return os.WriteFile(ReportOpts.OutFile, reportBytes, 0644)
	}

	filename := ReportKey(h.service.Name, h.reportName, now)
	h.logger.Info().Str("bucket", ReportOpts.Bucket).Str("filename", filename).Int("size", len(reportBytes)).Msg("saving report to s3")
	_, err = h.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(ReportOpts.Bucket),
		Body:   bytes.NewReader(reportBytes),
		Key:    aws.String(filename),
	})
	return err
}

// GetRawAsOf returns the most recent report at or before the given timestamp,
// walking back up to five days of prefixes.
func GetRawAsOf(ctx context.Context, s3Api s3iface.S3API, bucket, serviceName, reportName string, timestamp time.Time) ([]byte, string, error) {
	for count := 0; ; count++ {
		prefix := fmt.Sprintf("%v/%v/%v", serviceName, reportName, timestamp.Format("2006-01-02"))
		listOutput, err := s3Api.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			MaxKeys: aws.Int64(1000),
			Prefix:  aws.String(prefix),
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to find latest report: failed to list objects: %w", err)
		}

		if len(listOutput.Contents) == 0 {
			if count >= 5 {
				return nil, "", fmt.Errorf("failed to find latest report after 5 days: %v", timestamp)
			}
			yesterday := timestamp.AddDate(0, 0, -1)
			timestamp = time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 59, 59, 0, time.UTC)
			continue
		}

		sort.Slice(listOutput.Contents, func(i, j int) bool {
			return aws.StringValue(listOutput.Contents[i].Key) > aws.StringValue(listOutput.Contents[j].Key)
		})
		latestKey := listOutput.Contents[0].Key

		output, err := s3Api.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    latestKey,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to get object, %v: %w", aws.StringValue(latestKey), err)
		}
		reportBytes, err := io.ReadAll(output.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read s3 response, %v: %w", aws.StringValue(latestKey), err)
		}
		return reportBytes, aws.StringValue(latestKey), nil
	}
}

// GetLatest unmarshals the most recent report into obj.
func GetLatest(ctx context.Context, s3Api s3iface.S3API, bucket, serviceName, reportName string, obj any) (string, error) {
	reportBytes, filename, err := GetRawAsOf(ctx, s3Api, bucket, serviceName, reportName, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(reportBytes, obj); err != nil {
		return "", fmt.Errorf("failed to unmarshal latest report: %w", err)
	}
	return filename, nil
}

func (h *Handler) Start() error {
	if ReportOpts.GetLatest {
		reportBytes, _, err := GetRawAsOf(context.Background(), h.s3, ReportOpts.Bucket, h.service.Name, h.reportName, time.Now().UTC())
		if err != nil {
			return err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, reportBytes, "", "  "); err != nil {
			return err
		}
		if ReportOpts.OutFile == "" {
			os.Stdout.Write(pretty.Bytes())
			return nil
		}
		return os.WriteFile(ReportOpts.OutFile, pretty.Bytes(), 0644)
	}

	switch {
	case telemetrycli.CommonOpts.Console:
		return h.Generate(context.Background(), nil)

	default:
		lambda.Start(h.Generate)
	}
	return nil
}
