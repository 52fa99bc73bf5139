package support

import "github.com/xela07ax/vehicle-health-pipeline/internal/domain"

const (
	sohHealthy    = 98.5
	sohDegraded   = 82.0
	lowVoltage    = 12.5
	imbalanceVolt = 13.0
	chargeCycles  = 142
)

// CheckBattery оценивает состояние АКБ по напряжению из снимка.
func CheckBattery(t domain.TelemetrySnapshot) domain.BatteryHealth {
	res := domain.BatteryHealth{
		StateOfHealthPct: sohHealthy,
		EstimatedRangeKm: 320,
		ImbalanceDetail:  "None",
		ChargingCycles:   chargeCycles,
	}
	if t.BatteryVolts < lowVoltage {
		res.StateOfHealthPct = sohDegraded
	}
	if res.StateOfHealthPct < 90 {
		res.EstimatedRangeKm = 280
	}
	if t.BatteryVolts <= imbalanceVolt {
		res.CellImbalance = true
		res.ImbalanceDetail = "Detected (Cell 4)"
	}
	return res
}
