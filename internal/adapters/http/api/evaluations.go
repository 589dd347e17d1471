package api

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/generosity/internal/app"
	"github.com/okian/generosity/internal/domain/model"
	"github.com/okian/generosity/pkg/logger"
)

// contextValuePrefix marks query parameters that feed the evaluation context,
// e.g. ctx.help_requests_received=12.
const contextValuePrefix = "ctx."

// EvaluationsHandler handles metric evaluation requests.
type EvaluationsHandler struct {
	evaluator Evaluator
	logger    logger.Logger
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(evaluator Evaluator, log logger.Logger) *EvaluationsHandler {
	return &EvaluationsHandler{evaluator: evaluator, logger: log}
}

// HandleEvaluate handles GET /evaluations requests.
func (h *EvaluationsHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	req, err := parseEvaluationRequest(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.evaluator.Evaluate(r.Context(), req)
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	if out == nil {
		out = []model.Metric{}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDefinitions handles GET /metric-definitions requests.
func (h *EvaluationsHandler) HandleDefinitions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.evaluator.Definitions())
}

func parseEvaluationRequest(q url.Values) (service.EvaluationRequest, error) {
	req := service.EvaluationRequest{
		Context: q.Get("context"),
		ActorID: q.Get("actor_id"),
	}
	var err error
	if req.Since, err = parseTime(q.Get("since")); err != nil {
		return req, fmt.Errorf("%w: since: %w", ErrBadRequest, err)
	}
	if req.Until, err = parseTime(q.Get("until")); err != nil {
		return req, fmt.Errorf("%w: until: %w", ErrBadRequest, err)
	}
	if !req.Since.IsZero() && !req.Until.IsZero() && !req.Since.Before(req.Until) {
		return req, fmt.Errorf("%w: since must be before until", ErrBadRequest)
	}

	for key, vals := range q {
		name, ok := strings.CutPrefix(key, contextValuePrefix)
		if !ok || name == "" || len(vals) == 0 {
			continue
		}
		f, err := strconv.ParseFloat(vals[0], 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return req, fmt.Errorf("%w: %s must be a finite number", ErrBadRequest, key)
		}
		if req.Values == nil {
			req.Values = make(map[string]any)
		}
		req.Values[name] = f
	}
	return req, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC3339: %w", err)
	}
	return t, nil
}
