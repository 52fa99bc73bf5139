package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/compliance"
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/notify"
	"github.com/xela07ax/vehicle-health-pipeline/internal/telemetry"
)

var ErrInvalidRequest = errors.New("engine: invalid run request")

// SensorSource — источник снимков телеметрии
type SensorSource interface {
	Read(vehicleID, scenario string, toggles telemetry.Toggles) domain.TelemetrySnapshot
}

// Reasoner — рассуждающие агенты: диагноз на борту и анализ первопричины в облаке
type Reasoner interface {
	Diagnose(ctx context.Context, rec audit.Recorder, snap domain.TelemetrySnapshot, credential string) domain.DiagnosisResult
	AnalyzeRootCause(ctx context.Context, rec audit.Recorder, diag domain.DiagnosisResult, credential string) domain.RCAResult
}

type InventoryChecker interface {
	Check(faultType string) domain.InventoryResult
}

type Locator interface {
	Nearest(loc domain.Location) domain.LocationResult
}

type SlotFinder interface {
	FindSlot(loc domain.LocationResult) domain.SchedulingResult
}

type ComplianceChecker interface {
	Evaluate(in compliance.Input) domain.ComplianceVerdict
}

// Deps — все зависимости оркестратора. Auditor, Publisher и Metrics могут быть nil.
type Deps struct {
	Sensors    SensorSource
	Reasoner   Reasoner
	Inventory  InventoryChecker
	Locator    Locator
	Scheduler  SlotFinder
	Compliance ComplianceChecker
	Auditor    audit.Logger
	Publisher  notify.Publisher
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Request — один прогон для одной машины
type Request struct {
	VehicleID  string            `json:"vehicle_id"`
	Scenario   string            `json:"scenario"`
	Toggles    telemetry.Toggles `json:"toggles"`
	Credential string            `json:"-"`
}

// Orchestrator не хранит состояния прогонов: каждый Run владеет своим runState,
// поэтому прогоны можно запускать параллельно.
type Orchestrator struct {
	deps   Deps
	graph  *Graph
	logger *zap.Logger
}

func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.Sensors == nil || deps.Reasoner == nil || deps.Inventory == nil ||
		deps.Locator == nil || deps.Scheduler == nil || deps.Compliance == nil {
		return nil, errors.New("engine: missing orchestrator dependency")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}

	o := &Orchestrator{deps: deps, logger: deps.Logger.Named("orchestrator")}
	g, err := NewGraph(o.stages())
	if err != nil {
		return nil, err
	}
	o.graph = g
	return o, nil
}

// runState — рабочее состояние одного прогона. Стадии одного уровня пишут в разные поля.
type runState struct {
	req   Request
	runID string

	snap      domain.TelemetrySnapshot
	driver    *domain.DriverBehavior
	diagnosis domain.DiagnosisResult
	payload   domain.Payload
	sizeKB    float64

	rca        *domain.RCAResult
	inventory  *domain.InventoryResult
	battery    *domain.BatteryHealth
	financial  *domain.FinancialEstimate
	patch      string
	location   *domain.LocationResult
	scheduling *domain.SchedulingResult
	verdict    *domain.ComplianceVerdict
}

func (rs *runState) faulted() bool { return rs.diagnosis.FaultDetected }

func (rs *runState) otaEligible() bool { return rs.rca != nil && rs.rca.OTAEligible }

// Run выполняет прогон. Ошибка возвращается только при отмене ctx или неверном запросе;
// в первом случае вместе с частичным результатом.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*domain.PipelineResult, error) {
	if req.VehicleID == "" {
		return nil, fmt.Errorf("%w: vehicle_id is required", ErrInvalidRequest)
	}
	if req.Scenario == "" {
		req.Scenario = telemetry.ScenarioNormal
	}

	rs := &runState{req: req, runID: uuid.New().String()}

	ctx, span := otel.Tracer("engine").Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("run_id", rs.runID),
		attribute.String("vehicle_id", req.VehicleID),
	)
	defer span.End()

	log := o.logger.With(zap.String("run_id", rs.runID), zap.String("vehicle_id", req.VehicleID))
	start := time.Now()
	trail := audit.NewTrail(rs.runID, o.deps.Auditor)

	err := o.graph.Execute(ctx, rs, trail)

	branch := "normal"
	switch {
	case rs.otaEligible():
		branch = "ota"
	case rs.faulted():
		branch = "fault"
	}
	o.deps.Metrics.RunsTotal.WithLabelValues(branch).Inc()
	o.deps.Metrics.RunDuration.WithLabelValues(branch).Observe(time.Since(start).Seconds())

	res := &domain.PipelineResult{
		RunID:              rs.runID,
		VehicleID:          req.VehicleID,
		Telemetry:          rs.snap,
		Diagnosis:          rs.diagnosis,
		RCA:                rs.rca,
		Financial:          rs.financial,
		Compliance:         rs.verdict,
		Location:           rs.location,
		Scheduling:         rs.scheduling,
		PatchStatus:        rs.patch,
		Battery:            rs.battery,
		Inventory:          rs.inventory,
		DriverBehavior:     rs.driver,
		AuditTrail:         trail.Entries(),
		PayloadSizeKB:      rs.sizeKB,
		TransmittedPayload: rs.payload,
		StartedAt:          start,
		FinishedAt:         time.Now(),
	}
	if err != nil {
		log.Warn("run aborted", zap.Error(err), zap.Int("records", len(res.AuditTrail)))
		return res, err
	}

	log.Info("run completed",
		zap.String("branch", branch),
		zap.String("fault_type", rs.diagnosis.FaultType),
		zap.Int("records", len(res.AuditTrail)),
		zap.Duration("took", res.FinishedAt.Sub(start)),
	)
	return res, nil
}
