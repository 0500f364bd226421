// internal/api/handler/api/backtest.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/signaledge/internal/api/job"
	"github.com/newthinker/signaledge/internal/api/response"
	"github.com/newthinker/signaledge/internal/app"
	"github.com/newthinker/signaledge/internal/backtest"
	"github.com/newthinker/signaledge/internal/core"
)

const (
	defaultBacktestTimeout = 5 * time.Minute
	dateLayout             = "2006-01-02"
	jobTypeBacktest        = "backtest"
)

// Runner executes backtests on behalf of the API.
type Runner interface {
	Backtest(ctx context.Context, req app.Request) (*app.Outcome, error)
	DefaultParams() backtest.Params
}

// JobsGauge receives the number of unfinished jobs.
type JobsGauge interface {
	SetJobsActive(jobType string, count int)
}

// BacktestRequest is the request body for starting a backtest.
// Params holds overrides applied on top of the configured defaults.
type BacktestRequest struct {
	Symbol     string          `json:"symbol"`
	Source     string          `json:"source,omitempty"`
	Start      string          `json:"start"`
	End        string          `json:"end,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Archive    bool            `json:"archive,omitempty"`
	Commentary bool            `json:"commentary,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore *job.Store
	runner   Runner
	gauge    JobsGauge
	timeout  time.Duration
	now      func() time.Time
}

// NewBacktestHandler creates a new backtest handler. A nil gauge is allowed.
func NewBacktestHandler(jobStore *job.Store, runner Runner, gauge JobsGauge, timeout time.Duration) *BacktestHandler {
	if timeout <= 0 {
		timeout = defaultBacktestTimeout
	}
	return &BacktestHandler{
		jobStore: jobStore,
		runner:   runner,
		gauge:    gauge,
		timeout:  timeout,
		now:      time.Now,
	}
}

// parse turns the request body into an app.Request.
func (h *BacktestHandler) parse(body BacktestRequest) (app.Request, error) {
	if body.Symbol == "" {
		return app.Request{}, core.WrapError(core.ErrInvalidInput, errors.New("symbol is required"))
	}
	if body.Start == "" {
		return app.Request{}, core.WrapError(core.ErrInvalidInput, errors.New("start is required"))
	}

	start, err := time.Parse(dateLayout, body.Start)
	if err != nil {
		return app.Request{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("start: %w", err))
	}
	end := h.now().UTC().Truncate(24 * time.Hour)
	if body.End != "" {
		if end, err = time.Parse(dateLayout, body.End); err != nil {
			return app.Request{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("end: %w", err))
		}
	}
	if end.Before(start) {
		return app.Request{}, core.WrapError(core.ErrInvalidInput, errors.New("end is before start"))
	}

	params := h.runner.DefaultParams()
	if len(body.Params) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body.Params))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&params); err != nil {
			return app.Request{}, core.WrapError(core.ErrInvalidInput, fmt.Errorf("params: %w", err))
		}
	}
	if err := params.Validate(); err != nil {
		return app.Request{}, err
	}

	return app.Request{
		Source:     body.Source,
		Symbol:     body.Symbol,
		Start:      start,
		End:        end,
		Params:     params,
		Archive:    body.Archive,
		Commentary: body.Commentary,
	}, nil
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidInput, err))
		return
	}

	req, err := h.parse(body)
	if err != nil {
		response.Fail(w, err)
		return
	}

	// Create job
	j := h.jobStore.Create(jobTypeBacktest)
	h.reportActive()

	// Copy values before starting goroutine to avoid race
	jobID := j.ID
	status := j.Status

	// Run backtest in background
	go h.runBacktest(jobID, req)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
		"status": status,
	})
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(jobID string, req app.Request) {
	defer h.reportActive()

	// Mark as running
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	out, err := h.runner.Backtest(ctx, req)

	if err != nil {
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = out
	})
}

func (h *BacktestHandler) reportActive() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(jobTypeBacktest, h.jobStore.ActiveCount(jobTypeBacktest))
	}
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobStore.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = map[string]string{
			"code":    j.Error.Code,
			"message": j.Error.Message,
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

// List returns every live backtest job without results.
func (h *BacktestHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobStore.List()
	items := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		if j.Type != jobTypeBacktest {
			continue
		}
		items = append(items, map[string]any{
			"job_id":     j.ID,
			"status":     j.Status,
			"created_at": j.CreatedAt,
		})
	}
	response.JSON(w, http.StatusOK, items)
}

func asCoreError(err error) *core.Error {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.WrapError(core.ErrSourceFailed, err)
	}
	return &core.Error{Code: "INTERNAL_ERROR", Message: "backtest failed", Cause: err}
}
