package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

// Task — имя агента-рассуждателя; оно же попадает в журнал как actor.
type Task string

const (
	TaskDiagnosis Task = "DiagnosisAgent"
	TaskRCA       Task = "RCAAgent"
)

// Записи журнала о способе вывода
const (
	ActionInferenceSuccess = "INFERENCE_SUCCESS"
	ActionFallback         = "FALLBACK_MODE"
	ActionAPIError         = "API_ERROR"

	StatusOK       = "OK"
	StatusFallback = "FALLBACK"
	StatusError    = "ERROR"

	fallbackDetail = "Heuristics Applied"
)

// Outcome — исход одного вызова Execute для метрик
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// Observer получает исход каждого вызова (метрики).
type Observer interface {
	ObserveInference(task Task, outcome Outcome, took time.Duration)
}

type taskSpec struct {
	site        audit.Site
	instruction string
	required    []string
	heuristic   func(map[string]any) map[string]any
	validate    func(map[string]any) error
}

var tasks = map[Task]taskSpec{
	TaskDiagnosis: {
		site:        audit.SiteEdge,
		instruction: diagnosisInstruction,
		required: []string{
			"fault_detected", "fault_type", "severity", "driver_friendly_message",
			"safety_tips", "upload_required", "confidence",
		},
		heuristic: diagnosisHeuristic,
		validate: func(m map[string]any) error {
			var d domain.DiagnosisResult
			if err := decodeInto(m, &d); err != nil {
				return err
			}
			return checkDiagnosis(d)
		},
	},
	TaskRCA: {
		site:        audit.SiteCloud,
		instruction: rcaInstruction,
		required: []string{
			"is_batch_defect", "batch_id", "manufacturing_action",
			"estimated_cost_per_unit", "ota_eligible",
		},
		heuristic: rcaHeuristic,
		validate: func(m map[string]any) error {
			var r domain.RCAResult
			return decodeInto(m, &r)
		},
	},
}

// Agent — рассуждающий агент: удаленная модель, при любой проблеме эвристика.
// Состояния между вызовами не хранит.
type Agent struct {
	client   Inferencer
	timeout  time.Duration
	observer Observer
	logger   *zap.Logger
}

type AgentOption func(*Agent)

// WithTimeout ограничивает весь удаленный вызов, включая повторы.
func WithTimeout(d time.Duration) AgentOption {
	return func(a *Agent) { a.timeout = d }
}

func WithObserver(o Observer) AgentOption {
	return func(a *Agent) { a.observer = o }
}

// NewAgent client может быть nil: тогда всегда работает эвристика.
func NewAgent(client Inferencer, logger *zap.Logger, opts ...AgentOption) *Agent {
	a := &Agent{
		client:  client,
		timeout: 30 * time.Second,
		logger:  logger.Named("reasoning"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Execute возвращает вывод задачи и пишет в rec ровно одну запись о том, как он получен.
// Результат никогда не nil; для неизвестной задачи это пустая карта.
func (a *Agent) Execute(ctx context.Context, rec audit.Recorder, task Task, input map[string]any, credential string) map[string]any {
	ctx, span := otel.Tracer("reasoning").Start(ctx, "reasoning."+string(task))
	defer span.End()

	start := time.Now()
	spec, known := tasks[task]
	if !known {
		spec = taskSpec{site: audit.SiteCloud}
	}

	heuristic := func() map[string]any {
		if spec.heuristic == nil {
			return map[string]any{}
		}
		return spec.heuristic(input)
	}

	strategy := SelectStrategy(credential, a.client)
	if !known {
		strategy = StrategyHeuristic
	}
	span.SetAttributes(attribute.String("strategy", strategy.String()))

	if strategy == StrategyHeuristic {
		rec.Record(string(task), spec.site, ActionFallback, StatusFallback, fallbackDetail)
		a.observe(task, OutcomeFallback, start)
		return heuristic()
	}

	out, err := a.remote(ctx, spec, input, credential)
	if err != nil {
		a.logger.Error("inference failed, applying heuristics",
			zap.String("task", string(task)),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rec.Record(string(task), spec.site, ActionAPIError, StatusError, err.Error())
		a.observe(task, OutcomeError, start)
		return heuristic()
	}

	rec.Record(string(task), spec.site, ActionInferenceSuccess, StatusOK, a.client.Model())
	a.observe(task, OutcomeSuccess, start)
	return out
}

func (a *Agent) remote(ctx context.Context, spec taskSpec, input map[string]any, credential string) (map[string]any, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.client.Generate(ctx, credential, Request{Instruction: spec.instruction, Input: input})
	if err != nil {
		return nil, err
	}

	out, err := parseObject(text)
	if err != nil {
		return nil, err
	}
	if err := requireKeys(out, spec.required); err != nil {
		return nil, err
	}
	if err := spec.validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diagnose классифицирует снимок. Координаты и сырая форма сигнала в модель не уходят.
func (a *Agent) Diagnose(ctx context.Context, rec audit.Recorder, snap domain.TelemetrySnapshot, credential string) domain.DiagnosisResult {
	input := snap.DiagnosisInput()
	out := a.Execute(ctx, rec, TaskDiagnosis, input, credential)

	var d domain.DiagnosisResult
	if err := decodeInto(out, &d); err != nil {
		a.logger.Error("diagnosis decode failed", zap.Error(err))
		_ = decodeInto(diagnosisHeuristic(input), &d)
	}
	return d
}

// AnalyzeRootCause связывает диагноз с данными производителя.
func (a *Agent) AnalyzeRootCause(ctx context.Context, rec audit.Recorder, diag domain.DiagnosisResult, credential string) domain.RCAResult {
	input := map[string]any{
		"fault_detected":  diag.FaultDetected,
		"fault_type":      diag.FaultType,
		"severity":        diag.Severity,
		"upload_required": diag.UploadRequired,
		"confidence":      diag.Confidence,
	}
	out := a.Execute(ctx, rec, TaskRCA, input, credential)

	var r domain.RCAResult
	if err := decodeInto(out, &r); err != nil {
		a.logger.Error("rca decode failed", zap.Error(err))
		_ = decodeInto(rcaHeuristic(input), &r)
	}
	return r
}

func (a *Agent) observe(task Task, outcome Outcome, start time.Time) {
	if a.observer != nil {
		a.observer.ObserveInference(task, outcome, time.Since(start))
	}
}

// checkDiagnosis отсекает ответы модели, нарушающие инварианты диагноза.
func checkDiagnosis(d domain.DiagnosisResult) error {
	switch d.FaultType {
	case domain.FaultRodKnock, domain.FaultMisfire, domain.FaultMountFailure, domain.FaultNormal:
	default:
		return fmt.Errorf("%w: unknown fault_type %q", ErrMalformedResponse, d.FaultType)
	}
	switch d.Severity {
	case domain.SeverityCritical, domain.SeverityMedium, domain.SeverityLow:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrMalformedResponse, d.Severity)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of [0,1]", ErrMalformedResponse, d.Confidence)
	}
	if d.UploadRequired && !d.FaultDetected {
		return errors.Join(ErrMalformedResponse, errors.New("upload_required without fault_detected"))
	}
	if d.Severity == domain.SeverityCritical && d.FaultType != domain.FaultRodKnock {
		return fmt.Errorf("%w: critical severity for %q", ErrMalformedResponse, d.FaultType)
	}
	return nil
}
