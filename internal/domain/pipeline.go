package domain

import (
	"time"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
)

// Исходящий пакет: размеры фиксированы, чтобы учет трафика был детерминированным
const (
	PayloadSizeMinimalKB = 0.5
	PayloadSizeFullKB    = 1540.2
)

// Payload — то, что реально уходит с устройства в облако.
type Payload struct {
	VehicleID    string        `json:"v"`
	Timestamp    string        `json:"ts"`
	Status       string        `json:"stat"` // "OK" | "FAULT"
	BatteryVolts float64       `json:"bat"`
	FaultCodes   []string      `json:"dtc"`
	GPS          *Location     `json:"gps,omitempty"`
	Waveform     []float64     `json:"waveform_dump,omitempty"`
	EngineParams *EngineParams `json:"eng_params,omitempty"`
}

type EngineParams struct {
	RPM  int     `json:"rpm"`
	Load float64 `json:"load"`
	Temp float64 `json:"temp"`
}

// PipelineResult принадлежит только прогону, который его создал.
type PipelineResult struct {
	RunID     string            `json:"run_id"`
	VehicleID string            `json:"vehicle_id"`
	Telemetry TelemetrySnapshot `json:"telemetry"`
	Diagnosis DiagnosisResult   `json:"final_diagnosis"`

	RCA            *RCAResult         `json:"final_rca,omitempty"`
	Financial      *FinancialEstimate `json:"financial,omitempty"`
	Compliance     *ComplianceVerdict `json:"compliance,omitempty"`
	Location       *LocationResult    `json:"gps_data,omitempty"`
	Scheduling     *SchedulingResult  `json:"scheduling,omitempty"`
	PatchStatus    string             `json:"ota_status,omitempty"`
	DriverBehavior *DriverBehavior    `json:"driver_behavior,omitempty"`
	Battery        *BatteryHealth     `json:"battery_health,omitempty"`
	Inventory      *InventoryResult   `json:"inventory,omitempty"`

	AuditTrail         []audit.Entry `json:"structured_logs"`
	PayloadSizeKB      float64       `json:"data_upload_size_kb"`
	TransmittedPayload Payload       `json:"transmitted_payload"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
