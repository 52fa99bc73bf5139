package domain

import "time"

// Коды неисправностей (CAN/OBD), которые понимает эвристика диагностики.
const (
	CodeRodKnock   = "P0301"
	CodeMisfire    = "P0300"
	CodeLooseMount = "C1234"
)

// Location хранится отдельно от телеметрии: в исходящий пакет она попадает
// только при обязательной выгрузке и только в округленном виде.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TelemetrySnapshot — неизменяемый снимок датчиков, создается один раз на прогон.
// Все стадии получают его по значению.
type TelemetrySnapshot struct {
	VehicleID string    `json:"vehicle_id"`
	Timestamp time.Time `json:"timestamp"`

	// Вибрация
	RMS         float64   `json:"rms"`
	Peak        float64   `json:"peak"`
	RawWaveform []float64 `json:"raw_waveform"`

	// Двигатель и ходовые параметры
	RPM         int     `json:"rpm"`
	SpeedKmh    float64 `json:"speed_kmh"`
	ThrottlePos float64 `json:"throttle_pos"`

	// Витальные показатели
	Temperature  float64 `json:"temperature"`
	CoolantTemp  float64 `json:"coolant_temp"`
	OilPressure  float64 `json:"oil_pressure"`
	BatteryVolts float64 `json:"battery_volts"`
	BrakeWearPct float64 `json:"brake_wear_pct"`
	TirePressure float64 `json:"tire_pressure"`

	FaultCodes []string `json:"can_codes"`
	BatchID    string   `json:"batch_id"`

	// Не сериализуется вместе со снимком (data minimization)
	Location Location `json:"-"`
}

// DiagnosisInput — то, что уходит в DiagnosisAgent: без сырой формы сигнала и без координат.
func (t TelemetrySnapshot) DiagnosisInput() map[string]any {
	codes := make([]any, 0, len(t.FaultCodes))
	for _, c := range t.FaultCodes {
		codes = append(codes, c)
	}
	return map[string]any{
		"vehicle_id":     t.VehicleID,
		"timestamp":      t.Timestamp.Format("15:04:05"),
		"rms":            t.RMS,
		"peak":           t.Peak,
		"rpm":            t.RPM,
		"speed_kmh":      t.SpeedKmh,
		"throttle_pos":   t.ThrottlePos,
		"temperature":    t.Temperature,
		"coolant_temp":   t.CoolantTemp,
		"oil_pressure":   t.OilPressure,
		"battery_volts":  t.BatteryVolts,
		"brake_wear_pct": t.BrakeWearPct,
		"tire_pressure":  t.TirePressure,
		"can_codes":      codes,
		"batch_id":       t.BatchID,
	}
}
