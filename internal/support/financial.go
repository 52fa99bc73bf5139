package support

import "github.com/xela07ax/vehicle-health-pipeline/internal/domain"

const (
	laborCost           = 1500
	highImpactThreshold = 5000
)

// EstimateCost Работа оплачивается только если есть запчасти.
func EstimateCost(rca domain.RCAResult) domain.FinancialEstimate {
	est := domain.FinancialEstimate{
		PartsCost:   rca.EstimatedCost,
		ImpactLevel: "Low",
	}
	if est.PartsCost > 0 {
		est.LaborCost = laborCost
	}
	est.Total = est.PartsCost + est.LaborCost
	if est.Total > highImpactThreshold {
		est.ImpactLevel = "High"
	}
	return est
}
