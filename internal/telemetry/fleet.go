package telemetry

import (
	"fmt"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

const fleetFaultRate = 0.3

// FleetSummaries генерирует обзор парка из n машин: VIN-10000..VIN-1000(n-1).
// Неисправности встречаются только в партии A.
func (s *Simulator) FleetSummaries(n int) []domain.FleetSummary {
	if n <= 0 {
		return []domain.FleetSummary{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fleet := make([]domain.FleetSummary, 0, n)
	for i := 0; i < n; i++ {
		batch := BatchB
		if i%2 == 0 {
			batch = BatchA
		}
		faulty := batch == BatchA && s.rng.Float64() < fleetFaultRate

		item := domain.FleetSummary{
			VehicleID:    fmt.Sprintf("VIN-%d", 10000+i),
			BatchID:      batch,
			HealthStatus: "Healthy",
			FaultType:    "Healthy",
		}
		if faulty {
			item.HealthStatus = domain.SeverityCritical
			item.FaultType = domain.FaultRodKnock
			item.RMS = domain.Round(s.uniform(1.5, 3.0), 2)
			item.Peak = domain.Round(s.uniform(3.0, 5.0), 2)
			item.FrequencyHz = domain.Round(s.uniform(380, 420), 1)
		} else {
			item.RMS = domain.Round(s.uniform(0.1, 0.6), 2)
			item.Peak = domain.Round(s.uniform(0.5, 1.5), 2)
			item.FrequencyHz = domain.Round(s.uniform(40, 80), 1)
		}
		fleet = append(fleet, item)
	}
	return fleet
}
