// Package restserver serves the profile analysis API over HTTP.
package restserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/log"
	"github.com/chrissnell/cirquemetrics/internal/storage"
	"github.com/chrissnell/cirquemetrics/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	params     cirque.Params
	store      storage.ReportStore
	backend    string
	health     *storage.HealthManager
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// Options carries the optional collaborators of the controller
type Options struct {
	// Store persists every analysed batch when set
	Store storage.ReportStore
	// Backend names the store in health reports
	Backend string
	Health  *storage.HealthManager
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, params cirque.Params, opts Options, logger *zap.SugaredLogger) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Store != nil && opts.Backend == "" {
		return nil, errors.New("a storage backend name is required when a store is configured")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		params:     params,
		store:      opts.Store,
		backend:    opts.Backend,
		health:     opts.Health,
		logger:     logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultPort)
		rc.Port = config.DefaultPort
	}
	if rc.MaxBodyBytes <= 0 {
		rc.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	ctrl.restConfig = rc

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// Handler returns the router serving the API
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("starting REST server on %s", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		var err error
		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			err = c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key)
		} else {
			err = c.Server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/profiles/analyze", c.handlers.AnalyzeProfiles).Methods(http.MethodPost)
	api.HandleFunc("/runs", c.handlers.GetRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", c.handlers.GetRun).Methods(http.MethodGet)
	api.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	api.HandleFunc("/logs/http", c.handlers.GetHTTPLogs).Methods(http.MethodGet)

	return router
}

// statusRecorder captures the status and size of a response for the request log
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)
		var err error
		if rec.status >= http.StatusInternalServerError {
			err = errors.New(http.StatusText(rec.status))
		}

		// Don't record reads of the request log itself
		if r.URL.Path != "/api/v1/logs/http" {
			log.LogHTTPRequest(r.Method, r.URL.Path, rec.status, elapsed, rec.size, r.RemoteAddr, r.UserAgent(), err)
		}
		c.logger.Debugf("%s %s %s %d %v", r.Method, r.RequestURI, r.RemoteAddr, rec.status, elapsed)
	})
}
