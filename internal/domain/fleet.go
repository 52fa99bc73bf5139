package domain

// FleetSummary — синтетическая сводка по машине для обзора парка
type FleetSummary struct {
	VehicleID    string  `json:"vehicle_id"`
	BatchID      string  `json:"batch_id"`
	HealthStatus string  `json:"health_status"` // "Critical" | "Healthy"
	FaultType    string  `json:"fault_type"`
	RMS          float64 `json:"rms"`
	Peak         float64 `json:"peak"`
	FrequencyHz  float64 `json:"frequency"`
}

// OEMStrategy — решение, показывать ли производителю карточку отзывной кампании.
type OEMStrategy struct {
	ShowCard bool   `json:"show_card"`
	BatchID  string `json:"batch_id,omitempty"`
}
