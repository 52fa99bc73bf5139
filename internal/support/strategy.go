package support

import (
	"strings"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

// OEMStrategy решает, показывать ли производителю карточку кампании и с каким контекстом.
func OEMStrategy(faultType string) domain.OEMStrategy {
	switch {
	case faultType == "" || strings.Contains(faultType, domain.FaultNormal):
		return domain.OEMStrategy{}
	case strings.Contains(faultType, "Knock"):
		return domain.OEMStrategy{ShowCard: true, BatchID: "Batch-2023-A"}
	case strings.Contains(faultType, domain.FaultMisfire):
		return domain.OEMStrategy{ShowCard: true, BatchID: "Region-North"}
	default:
		return domain.OEMStrategy{ShowCard: true, BatchID: "VIN-Specific"}
	}
}
