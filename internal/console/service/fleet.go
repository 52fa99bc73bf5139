package service

import (
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/support"
)

const MaxFleetSize = 500

// FleetSource — генератор сводок по парку (telemetry.Simulator)
type FleetSource interface {
	FleetSummaries(n int) []domain.FleetSummary
}

type FleetService struct {
	src         FleetSource
	defaultSize int
}

func NewFleetService(src FleetSource, defaultSize int) *FleetService {
	if defaultSize <= 0 {
		defaultSize = 50
	}
	return &FleetService{src: src, defaultSize: defaultSize}
}

// Summaries возвращает n сводок; n <= 0 означает размер парка по умолчанию.
func (s *FleetService) Summaries(n int) []domain.FleetSummary {
	if n <= 0 {
		n = s.defaultSize
	}
	if n > MaxFleetSize {
		n = MaxFleetSize
	}
	return s.src.FleetSummaries(n)
}

func (s *FleetService) Strategy(faultType string) domain.OEMStrategy {
	return support.OEMStrategy(faultType)
}
