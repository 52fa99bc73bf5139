package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
	"github.com/xela07ax/vehicle-health-pipeline/internal/compliance"
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/notify"
	"github.com/xela07ax/vehicle-health-pipeline/internal/support"
)

// Имена стадий
const (
	StageAcquire        = "acquire"
	StageDriverBehavior = "driver_behavior"
	StageDiagnose       = "diagnose"
	StageHealthCheck    = "health_check"
	StageHeartbeat      = "heartbeat"
	StageUpload         = "upload"
	StageRCA            = "rca"
	StageInventory      = "inventory"
	StageBattery        = "battery"
	StageFinancial      = "financial"
	StageOTAPatch       = "ota_patch"
	StageLocate         = "locate"
	StageSchedule       = "schedule"
	StageCompliance     = "compliance"
)

func healthy(rs *runState) bool    { return !rs.faulted() }
func faulted(rs *runState) bool    { return rs.faulted() }
func withOTA(rs *runState) bool    { return rs.faulted() && rs.otaEligible() }
func needsVisit(rs *runState) bool { return rs.faulted() && !rs.otaEligible() }

// stages — граф прогона. Порядок объявления задает порядок записей аудита внутри уровня.
func (o *Orchestrator) stages() []Stage {
	return []Stage{
		{Name: StageAcquire, Site: audit.SiteEdge, Run: o.acquire},
		{Name: StageDriverBehavior, Site: audit.SiteEdge, Deps: []string{StageAcquire}, Run: o.analyzeDriver},
		{Name: StageDiagnose, Site: audit.SiteEdge, Deps: []string{StageAcquire}, Run: o.diagnose},

		{Name: StageHealthCheck, Site: audit.SiteEdge, Deps: []string{StageDiagnose}, When: healthy, Run: o.checkBattery},
		{Name: StageHeartbeat, Site: audit.SiteEdge, Deps: []string{StageHealthCheck}, When: healthy, Run: o.heartbeat},

		{Name: StageUpload, Site: audit.SiteEdge, Deps: []string{StageDiagnose}, When: faulted, Run: o.upload},
		{Name: StageRCA, Site: audit.SiteCloud, Deps: []string{StageUpload}, When: faulted, Run: o.analyzeRootCause},
		{Name: StageInventory, Site: audit.SiteCloud, Deps: []string{StageRCA}, When: faulted, Run: o.checkInventory},
		{Name: StageBattery, Site: audit.SiteEdge, Deps: []string{StageRCA}, When: faulted, Run: o.checkBattery},
		{Name: StageFinancial, Site: audit.SiteCloud, Deps: []string{StageRCA, StageInventory, StageBattery}, When: faulted, Run: o.estimate},
		{Name: StageOTAPatch, Site: audit.SiteCloud, Deps: []string{StageFinancial}, When: withOTA, Run: o.deployPatch},
		{Name: StageLocate, Site: audit.SiteCloud, Deps: []string{StageFinancial}, When: needsVisit, Run: o.locate},
		{Name: StageSchedule, Site: audit.SiteCloud, Deps: []string{StageLocate}, When: needsVisit, Run: o.schedule},
		{Name: StageCompliance, Site: audit.SiteCloud, Deps: []string{StageFinancial, StageOTAPatch, StageSchedule}, When: faulted, Run: o.checkCompliance},
	}
}

func (o *Orchestrator) acquire(_ context.Context, rs *runState, rec audit.Recorder) error {
	rec.Record("TelematicsAgent", audit.SiteEdge, "Acquire Sensor Data", "RUNNING", "Target: "+rs.req.VehicleID)
	rs.snap = o.deps.Sensors.Read(rs.req.VehicleID, rs.req.Scenario, rs.req.Toggles)
	return nil
}

func (o *Orchestrator) analyzeDriver(_ context.Context, rs *runState, rec audit.Recorder) error {
	d := support.AnalyzeDriver(rs.snap)
	rs.driver = &d
	rec.Record("DriverBehaviorAgent", audit.SiteEdge, "Driving Style Analysis", "OK",
		fmt.Sprintf("Score: %d (%s)", d.SafetyScore, d.Status))
	return nil
}

func (o *Orchestrator) diagnose(ctx context.Context, rs *runState, rec audit.Recorder) error {
	rs.diagnosis = o.deps.Reasoner.Diagnose(ctx, rec, rs.snap, rs.req.Credential)
	rs.payload, rs.sizeKB = BuildPayload(rs.snap, rs.diagnosis)

	status := "NORMAL"
	if rs.diagnosis.FaultDetected {
		status = "CRITICAL"
	}
	rec.Record("DiagnosisAgent", audit.SiteEdge, "Local Classification", status, "Type: "+rs.diagnosis.FaultType)
	return ctx.Err()
}

func (o *Orchestrator) checkBattery(_ context.Context, rs *runState, rec audit.Recorder) error {
	b := support.CheckBattery(rs.snap)
	rs.battery = &b
	rec.Record("BatteryHealthAgent", audit.SiteEdge, "Battery Diagnostics", "OK",
		fmt.Sprintf("SoH: %.1f%%, Range: %dkm", b.StateOfHealthPct, b.EstimatedRangeKm))
	return nil
}

func (o *Orchestrator) heartbeat(_ context.Context, rs *runState, rec audit.Recorder) error {
	rec.Record("CommsModule", audit.SiteEdge, "Heartbeat Sync", "SENT",
		fmt.Sprintf("Routine Packet (%sKB)", formatKB(rs.sizeKB)))
	return nil
}

func (o *Orchestrator) upload(_ context.Context, rs *runState, rec audit.Recorder) error {
	rec.Record("CommsModule", audit.SiteEdge, "Blackbox Upload", "TRIGGERED",
		fmt.Sprintf("Sending %sKB Full Dump to Cloud...", formatKB(rs.sizeKB)))
	return nil
}

func (o *Orchestrator) analyzeRootCause(ctx context.Context, rs *runState, rec audit.Recorder) error {
	r := o.deps.Reasoner.AnalyzeRootCause(ctx, rec, rs.diagnosis, rs.req.Credential)
	rs.rca = &r
	rec.Record("RCAAgent", audit.SiteCloud, "Root Cause Analysis", "DONE", "Batch: "+r.BatchID)
	return ctx.Err()
}

func (o *Orchestrator) checkInventory(_ context.Context, rs *runState, rec audit.Recorder) error {
	inv := o.deps.Inventory.Check(rs.diagnosis.FaultType)
	rs.inventory = &inv
	rec.Record("InventoryAgent", audit.SiteCloud, "Supply Chain Check", "DONE",
		fmt.Sprintf("Part: %s (%s)", inv.Part, inv.Status))
	return nil
}

func (o *Orchestrator) estimate(_ context.Context, rs *runState, rec audit.Recorder) error {
	f := support.EstimateCost(*rs.rca)
	rs.financial = &f
	rec.Record("FinancialAgent", audit.SiteCloud, "Cost Estimation", "DONE",
		fmt.Sprintf("Total: %.0f INR (%s)", f.Total, f.ImpactLevel))
	return nil
}

func (o *Orchestrator) deployPatch(_ context.Context, rs *runState, rec audit.Recorder) error {
	rec.Record("OTAAgent", audit.SiteCloud, "Software Patch", "DEPLOYING", "Version "+support.PatchVersion)
	rs.patch = support.DeployPatch()
	return nil
}

func (o *Orchestrator) locate(_ context.Context, rs *runState, rec audit.Recorder) error {
	loc := rs.snap.Location
	rec.Record("GPSAgent", audit.SiteCloud, "Geospatial Query", "RUNNING",
		fmt.Sprintf("Loc: %.4f, %.4f", loc.Lat, loc.Lon))
	res := o.deps.Locator.Nearest(loc)
	rs.location = &res
	return nil
}

func (o *Orchestrator) schedule(_ context.Context, rs *runState, rec audit.Recorder) error {
	s := o.deps.Scheduler.FindSlot(*rs.location)
	rs.scheduling = &s
	rec.Record("SecureSchedulingAgent", audit.SiteCloud, "Provisional Booking", "HELD", "Slot: "+s.Slot)
	return nil
}

func (o *Orchestrator) checkCompliance(ctx context.Context, rs *runState, rec audit.Recorder) error {
	v := o.deps.Compliance.Evaluate(compliance.Input{
		Diagnosis:  rs.diagnosis,
		Financial:  rs.financial,
		Scheduling: rs.scheduling,
	})
	rs.verdict = &v
	o.deps.Metrics.ComplianceVerdicts.WithLabelValues(string(v.Status)).Inc()

	ev := notify.Event{
		RunID:     rs.runID,
		VehicleID: rs.req.VehicleID,
		Status:    string(v.Status),
		Alerts:    v.Alerts,
		At:        v.CheckedAt,
	}
	if v.Status == domain.StatusBlocked {
		ev.Kind = notify.KindSecurityBlock
		rec.Record("ComplianceAgent", audit.SiteCloud, "Security Protocol", "SECURITY", fmt.Sprintf("Blocked: %v", v.Alerts))
	} else {
		ev.Kind = notify.KindDriverNotification
		if rs.scheduling != nil {
			ev.ServiceID, ev.Slot = rs.scheduling.ServiceID, rs.scheduling.Slot
		}
		rec.Record("MasterAgent", audit.SiteCloud, "Driver Notification", "SENT", "Action Plan Dispatched to App")
	}

	if o.deps.Publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := o.deps.Publisher.Publish(pubCtx, ev); err != nil {
			o.logger.Error("notification publish failed",
				zap.String("run_id", rs.runID),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err),
			)
		}
	}
	return nil
}

func formatKB(kb float64) string {
	return strconv.FormatFloat(kb, 'f', -1, 64)
}
