package support

import (
	"math/rand/v2"
	"sync"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

const (
	hubChennai  = "Regional Hub - Chennai"
	localDealer = "Local Dealer"
)

// Inventory — проверка наличия запчастей под тип неисправности.
type Inventory struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewInventory(rng *rand.Rand) *Inventory {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Inventory{rng: rng}
}

// Check Для стука шатуна наличие на складе случайно: 1 день или 14 дней ожидания.
func (inv *Inventory) Check(faultType string) domain.InventoryResult {
	switch faultType {
	case domain.FaultNormal:
		return domain.InventoryResult{Status: domain.StockNA, Part: "None"}
	case domain.FaultRodKnock:
		inv.mu.Lock()
		inStock := inv.rng.IntN(2) == 0
		inv.mu.Unlock()

		res := domain.InventoryResult{Part: "Connecting Rod Bearing Kit (Gen3)", Warehouse: hubChennai}
		if inStock {
			res.Status, res.LeadTimeDays = domain.StockAvailable, 1
		} else {
			res.Status, res.LeadTimeDays = domain.StockBackordered, 14
		}
		return res
	case domain.FaultMisfire:
		return domain.InventoryResult{Status: domain.StockAvailable, Part: "Ignition Coil Pack", Warehouse: localDealer}
	case domain.FaultMountFailure:
		return domain.InventoryResult{Status: domain.StockLowStock, Part: "Hydraulic Engine Mount", LeadTimeDays: 3, Warehouse: hubChennai}
	default:
		return domain.InventoryResult{Status: domain.StockUnknown, Part: "General Diagnostics"}
	}
}
