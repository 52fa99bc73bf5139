package compliance

import (
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
	"github.com/xela07ax/vehicle-health-pipeline/internal/support"
)

const (
	// HighValueThreshold сумма ремонта (INR), выше которой нужна ручная проверка
	HighValueThreshold = 20000

	businessOpenHour  = 9
	businessCloseHour = 19
)

// Input — накопленные решения прогона. Financial и Scheduling могут отсутствовать.
type Input struct {
	Diagnosis  domain.DiagnosisResult
	Financial  *domain.FinancialEstimate
	Scheduling *domain.SchedulingResult
}

// Rule Срабатывание правила перезаписывает статус и добавляет алерт.
type Rule struct {
	Name   string
	Status domain.ComplianceStatus
	Alert  string
	Match  func(Input) bool
}

// DefaultRules Порядок важен: при нескольких срабатываниях итоговый статус ставит последнее правило.
var DefaultRules = []Rule{
	{
		Name:   "critical_severity",
		Status: domain.StatusViolation,
		Alert:  "Severity Critical Violation",
		Match: func(in Input) bool {
			return in.Diagnosis.Severity == domain.SeverityCritical
		},
	},
	{
		Name:   "high_value",
		Status: domain.StatusReviewRequired,
		Alert:  "High-Value Transaction Flagged",
		Match: func(in Input) bool {
			return in.Financial != nil && in.Financial.Total > HighValueThreshold
		},
	},
	{
		Name:   "out_of_hours",
		Status: domain.StatusBlocked,
		Alert:  "Suspicious Out-of-Hours Booking",
		Match:  outOfHours,
	},
}

// Gate — финальная проверка решений прогона перед уведомлением водителя.
type Gate struct {
	rules  []Rule
	now    func() time.Time
	logger *zap.Logger
}

func NewGate(logger *zap.Logger) *Gate {
	return &Gate{rules: DefaultRules, now: time.Now, logger: logger.Named("compliance")}
}

// Evaluate прогоняет правила по порядку. Алерты накапливаются независимо от итогового статуса.
func (g *Gate) Evaluate(in Input) domain.ComplianceVerdict {
	v := domain.ComplianceVerdict{
		Status: domain.StatusCompliant,
		Alerts: []string{},
	}

	for _, r := range g.rules {
		if !r.Match(in) {
			continue
		}
		v.Status = r.Status
		v.Alerts = append(v.Alerts, r.Alert)
		g.logger.Debug("compliance rule triggered",
			zap.String("rule", r.Name),
			zap.String("status", string(r.Status)),
		)
	}

	v.CheckedAt = g.now()
	if v.Status != domain.StatusCompliant {
		g.logger.Warn("compliance verdict",
			zap.String("status", string(v.Status)),
			zap.Strings("alerts", v.Alerts),
		)
	}
	return v
}

// Нераспознанный формат слота правило просто пропускает.
func outOfHours(in Input) bool {
	if in.Scheduling == nil || in.Scheduling.Slot == "" {
		return false
	}
	slot, err := time.Parse(support.SlotLayout, in.Scheduling.Slot)
	if err != nil {
		return false
	}
	h := slot.Hour()
	return h < businessOpenHour || h >= businessCloseHour
}
