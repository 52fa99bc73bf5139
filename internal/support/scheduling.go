package support

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

// SlotLayout — формат слота записи в сервис
const SlotLayout = "2006-01-02 15:04"

const bookingLead = 2 * time.Hour

// Scheduler выполняет предварительную запись в найденный сервис.
type Scheduler struct {
	now func() time.Time
}

// NewScheduler now может быть nil, тогда используется time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

func (s *Scheduler) FindSlot(loc domain.LocationResult) domain.SchedulingResult {
	return domain.SchedulingResult{
		Center:    loc.Workshop,
		Distance:  loc.DistanceKm,
		Slot:      s.now().Add(bookingLead).Format(SlotLayout),
		ServiceID: "SRV-" + ulid.Make().String(),
	}
}
