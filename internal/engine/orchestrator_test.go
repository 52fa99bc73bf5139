package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/compliance"
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/notify"
	"github.com/xela07ax/vehicle-health-pipeline/internal/reasoning"
	"github.com/xela07ax/vehicle-health-pipeline/internal/support"
	"github.com/xela07ax/vehicle-health-pipeline/internal/telemetry"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	orch      *Orchestrator
	metrics   *Metrics
	publisher *capturePublisher
}

func newFixture(t *testing.T, clock time.Time, auditor audit.Logger) fixture {
	t.Helper()
	metrics := NewMetrics(prometheus.NewRegistry())
	pub := &capturePublisher{}

	orch, err := NewOrchestrator(Deps{
		Sensors:    telemetry.NewSimulator(rand.New(rand.NewPCG(1, 2))),
		Reasoner:   reasoning.NewAgent(nil, zap.NewNop(), reasoning.WithObserver(metrics)),
		Inventory:  support.NewInventory(rand.New(rand.NewPCG(3, 4))),
		Locator:    support.NewLocationResolver(nil, rand.New(rand.NewPCG(5, 6))),
		Scheduler:  support.NewScheduler(func() time.Time { return clock }),
		Compliance: compliance.NewGate(zap.NewNop()),
		Auditor:    auditor,
		Publisher:  pub,
		Metrics:    metrics,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	return fixture{orch: orch, metrics: metrics, publisher: pub}
}

var (
	morning = time.Date(2026, 10, 19, 10, 0, 0, 0, time.Local)
	evening = time.Date(2026, 10, 19, 20, 0, 0, 0, time.Local)
)

var rodKnockTrail = []string{
	"TelematicsAgent/Acquire Sensor Data/RUNNING",
	"DriverBehaviorAgent/Driving Style Analysis/OK",
	"DiagnosisAgent/FALLBACK_MODE/FALLBACK",
	"DiagnosisAgent/Local Classification/CRITICAL",
	"CommsModule/Blackbox Upload/TRIGGERED",
	"RCAAgent/FALLBACK_MODE/FALLBACK",
	"RCAAgent/Root Cause Analysis/DONE",
	"InventoryAgent/Supply Chain Check/DONE",
	"BatteryHealthAgent/Battery Diagnostics/OK",
	"FinancialAgent/Cost Estimation/DONE",
	"GPSAgent/Geospatial Query/RUNNING",
	"SecureSchedulingAgent/Provisional Booking/HELD",
	"MasterAgent/Driver Notification/SENT",
}

func TestOrchestrator_NormalRun(t *testing.T) {
	f := newFixture(t, morning, nil)

	res, err := f.orch.Run(context.Background(), Request{VehicleID: "VIN-10001", Scenario: telemetry.ScenarioNormal})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"TelematicsAgent/Acquire Sensor Data/RUNNING",
		"DriverBehaviorAgent/Driving Style Analysis/OK",
		"DiagnosisAgent/FALLBACK_MODE/FALLBACK",
		"DiagnosisAgent/Local Classification/NORMAL",
		"BatteryHealthAgent/Battery Diagnostics/OK",
		"CommsModule/Heartbeat Sync/SENT",
	}, actions(res.AuditTrail))
	assert.Equal(t, "Routine Packet (0.5KB)", res.AuditTrail[5].Detail)

	assert.False(t, res.Diagnosis.FaultDetected)
	assert.Equal(t, domain.FaultNormal, res.Diagnosis.FaultType)
	assert.Nil(t, res.RCA)
	assert.Nil(t, res.Financial)
	assert.Nil(t, res.Compliance)
	assert.Nil(t, res.Inventory)
	require.NotNil(t, res.Battery)
	require.NotNil(t, res.DriverBehavior)

	assert.Equal(t, 0.5, res.PayloadSizeKB)
	assert.Equal(t, "OK", res.TransmittedPayload.Status)
	assert.Nil(t, res.TransmittedPayload.GPS)
	assert.Empty(t, res.TransmittedPayload.FaultCodes)
	assert.Empty(t, f.publisher.events)

	for _, e := range res.AuditTrail {
		assert.Equal(t, audit.SiteEdge, e.Site)
		assert.Equal(t, res.RunID, e.RunID)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("normal")))
}

func TestOrchestrator_RodKnockRun(t *testing.T) {
	f := newFixture(t, morning, nil)

	res, err := f.orch.Run(context.Background(), Request{VehicleID: "VIN-10002", Scenario: telemetry.ScenarioRodKnock})
	require.NoError(t, err)

	assert.Equal(t, rodKnockTrail, actions(res.AuditTrail))
	assert.Equal(t, "Sending 1540.2KB Full Dump to Cloud...", res.AuditTrail[4].Detail)

	assert.Equal(t, domain.FaultRodKnock, res.Diagnosis.FaultType)
	assert.True(t, res.Diagnosis.UploadRequired)
	require.NotNil(t, res.RCA)
	assert.Equal(t, "Batch-2023-A", res.RCA.BatchID)
	require.NotNil(t, res.Financial)
	assert.Equal(t, 14000.0, res.Financial.Total)
	require.NotNil(t, res.Scheduling)
	assert.Equal(t, "2026-10-19 12:00", res.Scheduling.Slot)
	require.NotNil(t, res.Location)
	assert.Empty(t, res.PatchStatus)

	require.NotNil(t, res.Compliance)
	assert.Equal(t, domain.StatusViolation, res.Compliance.Status)
	assert.Equal(t, []string{"Severity Critical Violation"}, res.Compliance.Alerts)

	assert.Equal(t, 1540.2, res.PayloadSizeKB)
	assert.Equal(t, "FAULT", res.TransmittedPayload.Status)
	assert.Equal(t, []string{domain.CodeRodKnock}, res.TransmittedPayload.FaultCodes)
	require.NotNil(t, res.TransmittedPayload.GPS)

	// edge до выгрузки включительно (и проверка АКБ), дальше cloud
	sites := map[string]audit.Site{}
	for _, e := range res.AuditTrail {
		sites[e.Actor+"/"+e.Action] = e.Site
	}
	assert.Equal(t, audit.SiteEdge, sites["CommsModule/Blackbox Upload"])
	assert.Equal(t, audit.SiteEdge, sites["BatteryHealthAgent/Battery Diagnostics"])
	assert.Equal(t, audit.SiteCloud, sites["RCAAgent/Root Cause Analysis"])
	assert.Equal(t, audit.SiteCloud, sites["MasterAgent/Driver Notification"])

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, notify.KindDriverNotification, f.publisher.events[0].Kind)
	assert.Equal(t, res.Scheduling.ServiceID, f.publisher.events[0].ServiceID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("fault")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ComplianceVerdicts.WithLabelValues("VIOLATION")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.InferenceTotal.WithLabelValues("DiagnosisAgent", "fallback"))+
		testutil.ToFloat64(f.metrics.InferenceTotal.WithLabelValues("RCAAgent", "fallback")))
}

func TestOrchestrator_OTABranch(t *testing.T) {
	f := newFixture(t, morning, nil)

	res, err := f.orch.Run(context.Background(), Request{
		VehicleID: "VIN-10003",
		Scenario:  telemetry.ScenarioNormal,
		Toggles:   telemetry.Toggles{Misfire: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"TelematicsAgent/Acquire Sensor Data/RUNNING",
		"DriverBehaviorAgent/Driving Style Analysis/OK",
		"DiagnosisAgent/FALLBACK_MODE/FALLBACK",
		"DiagnosisAgent/Local Classification/CRITICAL",
		"CommsModule/Blackbox Upload/TRIGGERED",
		"RCAAgent/FALLBACK_MODE/FALLBACK",
		"RCAAgent/Root Cause Analysis/DONE",
		"InventoryAgent/Supply Chain Check/DONE",
		"BatteryHealthAgent/Battery Diagnostics/OK",
		"FinancialAgent/Cost Estimation/DONE",
		"OTAAgent/Software Patch/DEPLOYING",
		"MasterAgent/Driver Notification/SENT",
	}, actions(res.AuditTrail))

	assert.Equal(t, "PATCH_V1.3_SUCCESS", res.PatchStatus)
	assert.Nil(t, res.Location)
	assert.Nil(t, res.Scheduling)
	assert.Equal(t, 0.0, res.Financial.Total)
	assert.Equal(t, domain.StatusCompliant, res.Compliance.Status)
	assert.Empty(t, res.Compliance.Alerts)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RunsTotal.WithLabelValues("ota")))
}

func TestOrchestrator_OutOfHoursBlocked(t *testing.T) {
	f := newFixture(t, evening, nil)

	res, err := f.orch.Run(context.Background(), Request{VehicleID: "VIN-10004", Scenario: telemetry.ScenarioRodKnock})
	require.NoError(t, err)

	last := res.AuditTrail[len(res.AuditTrail)-1]
	assert.Equal(t, "ComplianceAgent/Security Protocol/SECURITY", last.Actor+"/"+last.Action+"/"+last.Status)
	assert.Equal(t, domain.StatusBlocked, res.Compliance.Status)
	assert.Equal(t, []string{"Severity Critical Violation", "Suspicious Out-of-Hours Booking"}, res.Compliance.Alerts)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, notify.KindSecurityBlock, f.publisher.events[0].Kind)
	assert.Equal(t, res.RunID, f.publisher.events[0].RunID)
}

func TestOrchestrator_ConcurrentRunsAreDeterministic(t *testing.T) {
	store := audit.NewMemoryStore()
	sink := audit.NewAgentFS(store, zap.NewNop(), audit.Options{FlushInterval: 5 * time.Millisecond})
	sink.Start()
	defer sink.Stop()

	f := newFixture(t, morning, sink)

	const runs = 16
	results := make([]*domain.PipelineResult, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.orch.Run(context.Background(), Request{VehicleID: "VIN-10010", Scenario: telemetry.ScenarioRodKnock})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, rodKnockTrail, actions(res.AuditTrail))
		for n, e := range res.AuditTrail {
			assert.Equal(t, n+1, e.Seq)
			assert.Equal(t, res.RunID, e.RunID)
		}
		assert.False(t, seen[res.RunID], "run ids must be unique")
		seen[res.RunID] = true
	}

	require.NoError(t, sink.Sync(context.Background()))
	all, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, runs*len(rodKnockTrail))

	// В общем журнале записи каждого прогона идут в порядке Seq
	lastSeq := map[string]int{}
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		assert.Equal(t, lastSeq[e.RunID]+1, e.Seq)
		lastSeq[e.RunID] = e.Seq
	}
}

func TestOrchestrator_CancelledRun(t *testing.T) {
	f := newFixture(t, morning, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.orch.Run(ctx, Request{VehicleID: "VIN-10005", Scenario: telemetry.ScenarioRodKnock})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.AuditTrail)
	assert.Nil(t, res.Compliance)
}

func TestOrchestrator_InvalidRequest(t *testing.T) {
	f := newFixture(t, morning, nil)
	_, err := f.orch.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOrchestrator_RemoteInferenceRecorded(t *testing.T) {
	client := reasoning.NewMockClient("gemini-2.0-flash", reasoning.MockReply{Text: "```json\n" + `{
		"fault_detected": true, "fault_type": "Rod Knock", "severity": "Critical",
		"driver_friendly_message": "Pull over", "safety_tips": ["Stop"], "upload_required": true, "confidence": 0.95}` + "\n```"},
		reasoning.MockReply{Text: `{"is_batch_defect": true, "batch_id": "Batch-2023-A", "manufacturing_action": "Recall",
		"estimated_cost_per_unit": 30000, "ota_eligible": false}`},
	)

	orch, err := NewOrchestrator(Deps{
		Sensors:    telemetry.NewSimulator(rand.New(rand.NewPCG(1, 2))),
		Reasoner:   reasoning.NewAgent(client, zap.NewNop()),
		Inventory:  support.NewInventory(nil),
		Locator:    support.NewLocationResolver(nil, nil),
		Scheduler:  support.NewScheduler(func() time.Time { return morning }),
		Compliance: compliance.NewGate(zap.NewNop()),
	})
	require.NoError(t, err)

	res, err := orch.Run(context.Background(), Request{VehicleID: "VIN-10006", Scenario: telemetry.ScenarioRodKnock, Credential: "key"})
	require.NoError(t, err)

	assert.Equal(t, "DiagnosisAgent/INFERENCE_SUCCESS/OK", actions(res.AuditTrail)[2])
	assert.Equal(t, "RCAAgent/INFERENCE_SUCCESS/OK", actions(res.AuditTrail)[5])
	assert.Equal(t, 0.95, res.Diagnosis.Confidence)
	assert.Equal(t, 31500.0, res.Financial.Total)
	assert.Equal(t, domain.StatusReviewRequired, res.Compliance.Status)
	assert.Equal(t, []string{"Severity Critical Violation", "High-Value Transaction Flagged"}, res.Compliance.Alerts)
}
