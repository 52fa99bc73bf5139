package domain

// Статусы склада
const (
	StockAvailable   = "Available"
	StockBackordered = "Backordered"
	StockLowStock    = "Low Stock"
	StockNA          = "NA"
	StockUnknown     = "Unknown"
)

type InventoryResult struct {
	Status       string `json:"status"`
	Part         string `json:"part"`
	LeadTimeDays int    `json:"lead_time_days"`
	Warehouse    string `json:"warehouse,omitempty"`
}

type BatteryHealth struct {
	StateOfHealthPct float64 `json:"soh_percentage"`
	EstimatedRangeKm int     `json:"estimated_range_km"`
	CellImbalance    bool    `json:"cell_imbalance"`
	ImbalanceDetail  string  `json:"cell_imbalance_detail"`
	ChargingCycles   int     `json:"charging_cycles"`
}

// Workshop — сервисный центр из реестра
type Workshop struct {
	Name   string  `json:"name" mapstructure:"name"`
	Lat    float64 `json:"lat" mapstructure:"lat"`
	Lon    float64 `json:"lon" mapstructure:"lon"`
	Rating float64 `json:"rating" mapstructure:"rating"`
}

type LocationResult struct {
	Workshop    string   `json:"workshop"`
	Coordinates Location `json:"coordinates"`
	DistanceKm  float64  `json:"distance_km"`
	Rating      float64  `json:"rating"`
	ETAMinutes  int      `json:"eta_mins"`
}

type SchedulingResult struct {
	Center    string  `json:"center"`
	Distance  float64 `json:"distance"`
	Slot      string  `json:"slot"` // "YYYY-MM-DD HH:MM"
	ServiceID string  `json:"service_id"`
}

// BehaviorTag — причина снижения скоринга водителя
type BehaviorTag struct {
	Reason string `json:"reason"`
	Impact int    `json:"impact"`
}

// DriverDNA — оси радарной диаграммы стиля вождения
type DriverDNA struct {
	Efficiency int `json:"efficiency"`
	Aggression int `json:"aggression"`
	Stability  int `json:"stability"`
	Braking    int `json:"braking"`
}

type DriverBehavior struct {
	SafetyScore int           `json:"safety_score"`
	Status      string        `json:"status"`
	Tags        []BehaviorTag `json:"tags"`
	DNA         DriverDNA     `json:"dna"`
}
