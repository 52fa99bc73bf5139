package telemetry

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

// Сценарии, которые понимает симулятор
const (
	ScenarioNormal   = "Normal"
	ScenarioRodKnock = "Rod Knock"
)

const (
	BatchA = "Batch-2023-A"
	BatchB = "Batch-2023-B"
)

const (
	Samples    = 1000 // окно 0.5 с
	WindowSecs = 0.5

	baseFreqHz = 60
	baseAmp    = 0.3
	noiseAmp   = 0.05

	knockFreqHz  = 400
	knockAmp     = 2.5
	knockBurst   = 0.02
	knockEvery   = 0.1
	knockStartAt = 0.05

	dropoutRate = 0.1
	dropoutGain = 0.1

	wobbleFreqHz = 5
	wobbleAmp    = 0.8

	homeLat   = 12.9716
	homeLon   = 77.5946
	geoJitter = 0.05
)

// Toggles — дополнительные неисправности поверх базового сценария
type Toggles struct {
	Misfire    bool `json:"misfire"`
	LooseMount bool `json:"loose_mount"`
}

// Simulator синтезирует снимки датчиков на стороне борта.
// Безопасен для конкурентного использования.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{rng: rng, now: time.Now}
}

// Read формирует один снимок для машины vehicleID.
func (s *Simulator) Read(vehicleID, scenario string, toggles Toggles) domain.TelemetrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	dt := WindowSecs / Samples
	signal := make([]float64, Samples)
	for i := range signal {
		t := float64(i) * dt
		signal[i] = baseAmp*math.Sin(2*math.Pi*baseFreqHz*t) + noiseAmp*s.rng.NormFloat64()
	}

	snap := domain.TelemetrySnapshot{
		VehicleID:    vehicleID,
		Timestamp:    s.now(),
		RPM:          3200,
		SpeedKmh:     65,
		ThrottlePos:  45,
		Temperature:  90,
		CoolantTemp:  85,
		OilPressure:  40,
		BatteryVolts: 13.8,
		BrakeWearPct: 15,
		TirePressure: 32,
		FaultCodes:   []string{},
		BatchID:      BatchFor(vehicleID),
	}

	if scenario == ScenarioRodKnock {
		for burst := knockStartAt; burst < WindowSecs; burst += knockEvery {
			for i := range signal {
				t := float64(i) * dt
				if t >= burst && t < burst+knockBurst {
					signal[i] += knockAmp * math.Sin(2*math.Pi*knockFreqHz*(t-burst))
				}
			}
		}
		snap.FaultCodes = append(snap.FaultCodes, domain.CodeRodKnock)
		snap.Temperature = 118
		snap.CoolantTemp = 105
		snap.OilPressure = 15
		snap.RPM = 3400
	}

	if toggles.Misfire {
		for i := range signal {
			if s.rng.Float64() < dropoutRate {
				signal[i] *= dropoutGain
			}
		}
		snap.FaultCodes = append(snap.FaultCodes, domain.CodeMisfire)
		snap.BatteryVolts = 12.1
		snap.RPM = 2800
		snap.SpeedKmh = 58
	}

	if toggles.LooseMount {
		for i := range signal {
			t := float64(i) * dt
			signal[i] += wobbleAmp * math.Sin(2*math.Pi*wobbleFreqHz*t)
		}
		snap.FaultCodes = append(snap.FaultCodes, domain.CodeLooseMount)
	}

	snap.RawWaveform = signal
	snap.RMS, snap.Peak = rmsPeak(signal)
	snap.Location = domain.Location{
		Lat: homeLat + s.uniform(-geoJitter, geoJitter),
		Lon: homeLon + s.uniform(-geoJitter, geoJitter),
	}
	return snap
}

// BatchFor — четные номера VIN относятся к партии A, нечетные и нераспознанные к B.
// Нераспознанный VIN считается номером 0.
func BatchFor(vehicleID string) string {
	n, err := strconv.Atoi(strings.TrimPrefix(vehicleID, "VIN-"))
	if err != nil {
		n = 0
	}
	if n%2 == 0 {
		return BatchA
	}
	return BatchB
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func rmsPeak(signal []float64) (rms, peak float64) {
	if len(signal) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range signal {
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return math.Sqrt(sum / float64(len(signal))), peak
}
