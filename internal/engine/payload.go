package engine

import "github.com/xela07ax/vehicle-health-pipeline/internal/domain"

// BuildPayload решает, что уходит с борта. Без обязательной выгрузки отправляется
// только heartbeat: без координат, формы сигнала и кодов.
func BuildPayload(t domain.TelemetrySnapshot, d domain.DiagnosisResult) (domain.Payload, float64) {
	p := domain.Payload{
		VehicleID:    t.VehicleID,
		Timestamp:    t.Timestamp.Format("15:04:05"),
		Status:       "OK",
		BatteryVolts: t.BatteryVolts,
		FaultCodes:   []string{},
	}
	if !d.UploadRequired {
		return p, domain.PayloadSizeMinimalKB
	}

	p.Status = "FAULT"
	p.GPS = &domain.Location{
		Lat: domain.Round(t.Location.Lat, 4),
		Lon: domain.Round(t.Location.Lon, 4),
	}
	p.Waveform = t.RawWaveform
	p.FaultCodes = append(p.FaultCodes, t.FaultCodes...)
	p.EngineParams = &domain.EngineParams{
		RPM:  t.RPM,
		Load: t.ThrottlePos,
		Temp: t.Temperature,
	}
	return p, domain.PayloadSizeFullKB
}
