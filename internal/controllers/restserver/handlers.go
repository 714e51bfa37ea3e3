package restserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/chrissnell/cirquemetrics/internal/cirque"
	"github.com/chrissnell/cirquemetrics/internal/log"
	"github.com/chrissnell/cirquemetrics/internal/storage"
	"github.com/chrissnell/cirquemetrics/pkg/responseformat"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

var errBadOption = errors.New("options must not be negative")

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) sendError(w http.ResponseWriter, req *http.Request, status int, msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorf("%s %s: %s", req.Method, req.URL.Path, msg)
	}
	if err := h.formatter.WriteError(w, req, status, msg); err != nil {
		h.controller.logger.Errorf("error encoding error response: %v", err)
	}
}

func (h *Handlers) send(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteStatus(w, req, status, data, nil); err != nil {
		h.controller.logger.Errorf("error encoding response: %v", err)
	}
}

// AnalyzeProfiles runs a batch of profiles posted as JSON or MessagePack and returns
// the report. The report is stored when the server has a store.
func (h *Handlers) AnalyzeProfiles(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, h.controller.restConfig.MaxBodyBytes)

	var body AnalyzeRequest
	if err := h.formatter.Decode(req, &body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, req, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		h.sendError(w, req, http.StatusBadRequest, "could not decode request", err)
		return
	}
	if len(body.Profiles) == 0 {
		h.sendError(w, req, http.StatusBadRequest, "no profiles supplied", nil)
		return
	}

	params, err := body.Options.apply(h.controller.params)
	if err != nil {
		h.sendError(w, req, http.StatusBadRequest, "invalid options", err)
		return
	}

	analyzer := cirque.NewAnalyzer(params, h.controller.logger)
	res, err := analyzer.AnalyzeBatch(req.Context(), body.Profiles)
	switch {
	case errors.Is(err, cirque.ErrInvalidInput):
		h.sendError(w, req, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	case err != nil:
		h.sendError(w, req, http.StatusInternalServerError, "analysis failed", err)
		return
	}

	resp := AnalyzeResponse{Report: cirque.NewReport(res)}
	if h.controller.store != nil {
		if err := h.controller.store.SaveReport(req.Context(), resp.Report); err != nil {
			h.sendError(w, req, http.StatusInternalServerError, "could not store report", err)
			return
		}
		resp.Stored = true
	}

	h.send(w, req, http.StatusOK, resp)
}

// GetRuns lists the stored runs
func (h *Handlers) GetRuns(w http.ResponseWriter, req *http.Request) {
	if h.controller.store == nil {
		h.sendError(w, req, http.StatusNotFound, "no report storage configured", nil)
		return
	}

	runs, err := h.controller.store.Runs(req.Context())
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "could not list runs", err)
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	h.send(w, req, http.StatusOK, RunsResponse{Runs: runs})
}

// GetRun returns the stored report of one run
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	if h.controller.store == nil {
		h.sendError(w, req, http.StatusNotFound, "no report storage configured", nil)
		return
	}

	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		h.sendError(w, req, http.StatusBadRequest, "invalid run id", err)
		return
	}

	rep, err := h.controller.store.Report(req.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		h.sendError(w, req, http.StatusNotFound, "run not found", nil)
		return
	}
	if err != nil {
		h.sendError(w, req, http.StatusInternalServerError, "could not load run", err)
		return
	}
	h.send(w, req, http.StatusOK, rep)
}

// GetHealth reports the server status and the last known storage health
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{Status: storage.StatusHealthy, Time: time.Now().UTC()}
	status := http.StatusOK

	if h.controller.store != nil {
		var current storage.Health
		if hm := h.controller.health; hm != nil {
			resp.Storage = hm.GetAllHealth()
			current, _ = hm.GetHealth(h.controller.backend)
		}
		if current.Status == "" {
			current = *h.controller.store.CheckHealth(req.Context())
			resp.Storage = map[string]storage.Health{h.controller.backend: current}
		}
		if current.Status != storage.StatusHealthy {
			resp.Status = storage.StatusUnhealthy
			status = http.StatusServiceUnavailable
		}
	}

	h.send(w, req, status, resp)
}

// GetHTTPLogs returns the most recent API requests
func (h *Handlers) GetHTTPLogs(w http.ResponseWriter, req *http.Request) {
	h.send(w, req, http.StatusOK, log.GetHTTPLogBuffer().Entries())
}
