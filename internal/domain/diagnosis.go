package domain

// Типы неисправностей (закрытый набор + Normal)
const (
	FaultRodKnock     = "Rod Knock"
	FaultMisfire      = "Misfire"
	FaultMountFailure = "Mount Failure"
	FaultNormal       = "Normal"
)

// Уровни критичности
const (
	SeverityCritical = "Critical"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

type DiagnosisResult struct {
	FaultDetected  bool     `json:"fault_detected" mapstructure:"fault_detected"`
	FaultType      string   `json:"fault_type" mapstructure:"fault_type"`
	Severity       string   `json:"severity" mapstructure:"severity"`
	Message        string   `json:"driver_friendly_message" mapstructure:"driver_friendly_message"`
	SafetyTips     []string `json:"safety_tips" mapstructure:"safety_tips"`
	UploadRequired bool     `json:"upload_required" mapstructure:"upload_required"`
	Confidence     float64  `json:"confidence" mapstructure:"confidence"`
}

// RCAResult — результат анализа первопричины, считается один раз на прогон с неисправностью.
type RCAResult struct {
	IsBatchDefect       bool    `json:"is_batch_defect" mapstructure:"is_batch_defect"`
	BatchID             string  `json:"batch_id" mapstructure:"batch_id"`
	ManufacturingAction string  `json:"manufacturing_action" mapstructure:"manufacturing_action"`
	EstimatedCost       float64 `json:"estimated_cost_per_unit" mapstructure:"estimated_cost_per_unit"`
	OTAEligible         bool    `json:"ota_eligible" mapstructure:"ota_eligible"`
}

// FinancialEstimate выводится из RCAResult детерминированно.
type FinancialEstimate struct {
	PartsCost   float64 `json:"parts_cost"`
	LaborCost   float64 `json:"labor_cost"`
	Total       float64 `json:"total_estimate_inr"`
	ImpactLevel string  `json:"impact_level"`
}
