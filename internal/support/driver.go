package support

import (
	"math"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

// Статусы водителя
const (
	DriverGood     = "Good Driver"
	DriverModerate = "Moderate"
	DriverRisky    = "Risky"
)

// AnalyzeDriver считает скоринг стиля вождения по снимку телеметрии.
//
// Итог — взвешенная сумма: 0.4 стабильность, 0.3 (100 - агрессия),
// 0.2 тормоза, 0.1 экономичность.
func AnalyzeDriver(t domain.TelemetrySnapshot) domain.DriverBehavior {
	eco := math.Min(100, t.SpeedKmh/(t.ThrottlePos+1)*50)

	agg := float64(t.RPM) / 6000 * 100
	if t.Temperature < 70 && t.RPM > 3000 {
		agg += 20 // холодный двигатель на высоких оборотах
	}
	agg = math.Min(100, agg)

	stability := math.Max(0, 100-t.RMS*15)
	braking := math.Max(0, 100-t.BrakeWearPct*2)

	weighted := 0.4*stability + 0.3*(100-agg) + 0.2*braking + 0.1*eco
	score := int(math.Min(100, math.Max(0, weighted)))

	tags := make([]domain.BehaviorTag, 0, 4)
	if agg > 60 {
		tags = append(tags, domain.BehaviorTag{Reason: "Aggressive Acceleration", Impact: -15})
	}
	if stability < 75 {
		tags = append(tags, domain.BehaviorTag{Reason: "Rough Terrain/Suspension", Impact: -10})
	}
	if eco < 50 {
		tags = append(tags, domain.BehaviorTag{Reason: "Inefficient Gear Usage", Impact: -5})
	}
	if t.SpeedKmh > 100 {
		tags = append(tags, domain.BehaviorTag{Reason: "High Speed Violation", Impact: -15})
		score -= 10
	}
	if score < 80 && len(tags) == 0 {
		tags = append(tags, domain.BehaviorTag{Reason: "General Irregularities", Impact: -5})
	}

	status := DriverGood
	if score < 75 {
		status = DriverModerate
	}
	if score < 50 {
		status = DriverRisky
	}

	return domain.DriverBehavior{
		SafetyScore: score,
		Status:      status,
		Tags:        tags,
		DNA: domain.DriverDNA{
			Efficiency: int(eco),
			Aggression: int(agg),
			Stability:  int(stability),
			Braking:    int(braking),
		},
	}
}
