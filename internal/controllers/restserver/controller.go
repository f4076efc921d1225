// Package restserver serves the most recent forecast over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/pkg/config"
)

const shutdownTimeout = 5 * time.Second

// ForecastSource supplies the forecast the server reports on.
type ForecastSource interface {
	Latest() (*forecast.Forecast, bool)
}

// Controller represents the REST server controller
type Controller struct {
	restConfig config.RESTServerData
	Server     http.Server
	source     ForecastSource
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(rc config.RESTServerData, source ForecastSource, logger *zap.SugaredLogger) (*Controller, error) {
	if source == nil {
		return nil, fmt.Errorf("REST server needs a forecast source")
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = config.DefaultRESTListenAddr
	}

	// Set default HTTP port if not specified
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultRESTPort)
		rc.Port = config.DefaultRESTPort
	}

	ctrl := &Controller{
		restConfig: rc,
		source:     source,
		logger:     logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// Run serves until ctx is cancelled, then shuts the server down.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Infof("starting REST server on %s", c.Server.Addr)

	errc := make(chan error, 1)
	go func() {
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("REST server error: %w", err)
	case <-ctx.Done():
	}

	c.logger.Info("shutting down the REST server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return c.Server.Shutdown(shutdownCtx)
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPMiddleware)

	router.HandleFunc("/forecast", c.handlers.GetForecast).Methods(http.MethodGet)
	router.HandleFunc("/forecast/records", c.handlers.GetRecords).Methods(http.MethodGet)
	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)

	return router
}
