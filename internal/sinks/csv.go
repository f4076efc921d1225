package sinks

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/chrissnell/pvforecast/internal/forecast"
)

var csvHeader = []string{
	"Timestamp",
	"Theory_Irradiation",
	"Attenuated_Irradiation",
	"Forecast_Irradiation",
	"Cloud_Low",
	"Cloud_Mid",
	"Cloud_High",
	"Cloud_Tot",
	"Temperature",
}

const (
	csvFileLayout      = "log-2006-01-02-15-04-05.csv"
	csvTimestampLayout = "2006-01-02 15:04:05"
)

// CSVSink writes one semicolon-separated prediction log per forecast run.
type CSVSink struct {
	dir    string
	logger *zap.SugaredLogger
}

// NewCSVSink creates dir if needed and returns a sink writing into it.
func NewCSVSink(dir string, logger *zap.SugaredLogger) (*CSVSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv log directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create csv log directory %s: %w", dir, err)
	}
	return &CSVSink{dir: dir, logger: logger}, nil
}

func (c *CSVSink) Name() string { return "csv" }

// FileName returns the log file name for a run generated at fc.GeneratedAt.
func (c *CSVSink) FileName(fc *forecast.Forecast) string {
	return filepath.Join(c.dir, fc.GeneratedAt.Format(csvFileLayout))
}

// Publish writes every record of fc to a new file.
func (c *CSVSink) Publish(ctx context.Context, fc *forecast.Forecast) error {
	path := c.FileName(fc)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create csv log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}
	for _, r := range fc.Records() {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			r.Timestamp.Format(csvTimestampLayout),
			formatValue(r.Theoretical),
			formatValue(r.Attenuated),
			formatValue(r.Smoothed),
			formatValue(r.CloudLow),
			formatValue(r.CloudMid),
			formatValue(r.CloudHigh),
			formatValue(r.CloudTotal),
			formatValue(r.Temperature),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("could not write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("could not flush csv log: %w", err)
	}

	c.logger.Debugw("wrote prediction log", "path", path, "records", fc.Len())
	return f.Close()
}

func (c *CSVSink) Close() error { return nil }

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
