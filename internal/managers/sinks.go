package managers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/internal/sinks"
	"github.com/chrissnell/pvforecast/pkg/config"
)

// SinkManager holds our active forecast sinks
type SinkManager struct {
	Sinks  []sinks.Sink
	logger *zap.SugaredLogger
}

// NewSinkManager creates a SinkManager populated with every sink enabled in c.
// extra sinks (such as the in-memory holder behind the REST server) are
// always added.
func NewSinkManager(ctx context.Context, c *config.ConfigData, logger *zap.SugaredLogger, extra ...sinks.Sink) (*SinkManager, error) {
	s := &SinkManager{logger: logger}

	for _, sink := range extra {
		s.AddSink(sink)
	}

	// Check the configuration for the supported sinks and enable them if found
	if c.CSVLog.Enabled {
		csvSink, err := sinks.NewCSVSink(c.CSVLog.Directory, logger.Named("csv"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add CSV sink: %w", err)
		}
		s.AddSink(csvSink)
	}

	if c.MQTT.Enabled {
		mqttSink, err := sinks.NewMQTTSink(ctx, c.MQTT, logger.Named("mqtt"))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add MQTT sink: %w", err)
		}
		s.AddSink(mqttSink)
	}

	return s, nil
}

// AddSink registers sink for future distributions
func (s *SinkManager) AddSink(sink sinks.Sink) {
	s.Sinks = append(s.Sinks, sink)
	s.logger.Infof("enabled %s sink", sink.Name())
}

// Distribute publishes fc to every sink concurrently. A failing sink does not
// stop the others; all failures are logged and returned joined.
func (s *SinkManager) Distribute(ctx context.Context, fc *forecast.Forecast) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)

	for _, sink := range s.Sinks {
		sink := sink
		g.Go(func() error {
			if err := sink.Publish(ctx, fc); err != nil {
				s.logger.Errorw("sink publish failed", "sink", sink.Name(), "run_id", fc.RunID, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return errors.Join(errs...)
}

// Close closes every sink, returning the joined errors
func (s *SinkManager) Close() error {
	var errs []error
	for _, sink := range s.Sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
