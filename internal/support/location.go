package support

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

// DefaultWorkshops — реестр сервисных центров
var DefaultWorkshops = []domain.Workshop{
	{Name: "Hero Hub - Indiranagar", Lat: 12.9716, Lon: 77.5946, Rating: 4.8},
	{Name: "Hero Hub - Koramangala", Lat: 12.9352, Lon: 77.6245, Rating: 4.5},
	{Name: "Hero Hub - Whitefield", Lat: 12.9698, Lon: 77.7500, Rating: 4.2},
	{Name: "Hero Hub - Central", Lat: 28.6139, Lon: 77.2090, Rating: 4.9},
}

// LocationResolver подбирает ближайший сервис. Дорожная дистанция симулируется.
type LocationResolver struct {
	workshops []domain.Workshop

	mu  sync.Mutex
	rng *rand.Rand
}

func NewLocationResolver(workshops []domain.Workshop, rng *rand.Rand) *LocationResolver {
	if len(workshops) == 0 {
		workshops = DefaultWorkshops
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &LocationResolver{workshops: workshops, rng: rng}
}

// Nearest ищет минимум по манхэттенскому расстоянию; при равенстве побеждает первый в реестре.
func (r *LocationResolver) Nearest(loc domain.Location) domain.LocationResult {
	best := r.workshops[0]
	bestDist := manhattan(best, loc)
	for _, w := range r.workshops[1:] {
		if d := manhattan(w, loc); d < bestDist {
			best, bestDist = w, d
		}
	}

	r.mu.Lock()
	dist := domain.Round(1.2+r.rng.Float64()*(5.5-1.2), 1)
	r.mu.Unlock()

	return domain.LocationResult{
		Workshop:    best.Name,
		Coordinates: domain.Location{Lat: best.Lat, Lon: best.Lon},
		DistanceKm:  dist,
		Rating:      best.Rating,
		ETAMinutes:  int(dist * 4),
	}
}

func manhattan(w domain.Workshop, loc domain.Location) float64 {
	return math.Abs(w.Lat-loc.Lat) + math.Abs(w.Lon-loc.Lon)
}
