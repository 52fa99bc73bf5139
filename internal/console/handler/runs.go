package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/engine"
	"github.com/xela07ax/vehicle-health-pipeline/internal/telemetry"
	"go.uber.org/zap"
)

// HeaderAPIKey — ключ инференса на запрос. Не аутентифицирует клиента.
const HeaderAPIKey = "X-Api-Key"

// PipelineRunner — то, что хендлеру нужно от оркестратора
type PipelineRunner interface {
	Run(ctx context.Context, req engine.Request) (*domain.PipelineResult, error)
}

type RunHandler struct {
	runner            PipelineRunner
	defaultCredential string
	runTimeout        time.Duration
	logger            *zap.Logger
}

type RunOption func(*RunHandler)

// WithRunTimeout ограничивает прогон, чтобы ответ успел уйти раньше WriteTimeout сервера.
func WithRunTimeout(d time.Duration) RunOption {
	return func(h *RunHandler) { h.runTimeout = d }
}

// NewRunHandler: defaultCredential подставляется, когда клиент не прислал свой ключ.
func NewRunHandler(r PipelineRunner, defaultCredential string, logger *zap.Logger, opts ...RunOption) *RunHandler {
	h := &RunHandler{runner: r, defaultCredential: defaultCredential, logger: logger.Named("runs")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Create запускает один прогон конвейера и возвращает полный результат
// POST /v1/runs
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	switch req.Scenario {
	case "", telemetry.ScenarioNormal, telemetry.ScenarioRodKnock:
	default:
		http.Error(w, "Unknown scenario", http.StatusBadRequest)
		return
	}

	req.Credential = r.Header.Get(HeaderAPIKey)
	if req.Credential == "" {
		req.Credential = h.defaultCredential
	}

	ctx := r.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	res, err := h.runner.Run(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrInvalidRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, context.DeadlineExceeded):
			http.Error(w, "Pipeline run timed out", http.StatusGatewayTimeout)
		case errors.Is(err, context.Canceled):
			// клиент ушел, отвечать некому
			h.logger.Debug("run cancelled by client", zap.String("vehicle_id", req.VehicleID))
		default:
			h.logger.Error("run failed", zap.String("vehicle_id", req.VehicleID), zap.Error(err))
			http.Error(w, "Pipeline run failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
