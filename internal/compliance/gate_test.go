package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

const (
	alertCritical  = "Severity Critical Violation"
	alertHighValue = "High-Value Transaction Flagged"
	alertHours     = "Suspicious Out-of-Hours Booking"
)

func slotAt(hour int) *domain.SchedulingResult {
	return &domain.SchedulingResult{Slot: time.Date(2026, 10, 19, hour, 30, 0, 0, time.UTC).Format("2006-01-02 15:04")}
}

func total(v float64) *domain.FinancialEstimate {
	return &domain.FinancialEstimate{Total: v}
}

func TestGate_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		wantStatus domain.ComplianceStatus
		wantAlerts []string
	}{
		{
			name:       "medium, modest cost, business hours",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityMedium}, Financial: total(5000), Scheduling: slotAt(10)},
			wantStatus: domain.StatusCompliant,
			wantAlerts: []string{},
		},
		{
			name:       "high value",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityMedium}, Financial: total(25000), Scheduling: slotAt(10)},
			wantStatus: domain.StatusReviewRequired,
			wantAlerts: []string{alertHighValue},
		},
		{
			name:       "early booking",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityMedium}, Financial: total(5000), Scheduling: slotAt(8)},
			wantStatus: domain.StatusBlocked,
			wantAlerts: []string{alertHours},
		},
		{
			name:       "last rule wins",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityCritical}, Financial: total(25000), Scheduling: slotAt(20)},
			wantStatus: domain.StatusBlocked,
			wantAlerts: []string{alertCritical, alertHighValue, alertHours},
		},
		{
			name:       "no scheduling",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityMedium}, Financial: total(100)},
			wantStatus: domain.StatusCompliant,
			wantAlerts: []string{},
		},
		{
			name:       "critical only",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityCritical}, Financial: total(14000)},
			wantStatus: domain.StatusViolation,
			wantAlerts: []string{alertCritical},
		},
		{
			name:       "closing hour is out of hours",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityLow}, Scheduling: slotAt(19)},
			wantStatus: domain.StatusBlocked,
			wantAlerts: []string{alertHours},
		},
		{
			name:       "unparsable slot ignored",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityMedium}, Scheduling: &domain.SchedulingResult{Slot: "tomorrow at 7"}},
			wantStatus: domain.StatusCompliant,
			wantAlerts: []string{},
		},
		{
			name:       "threshold is exclusive",
			in:         Input{Diagnosis: domain.DiagnosisResult{Severity: domain.SeverityMedium}, Financial: total(20000)},
			wantStatus: domain.StatusCompliant,
			wantAlerts: []string{},
		},
	}

	checked := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	g := NewGate(zap.NewNop())
	g.now = func() time.Time { return checked }

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := g.Evaluate(tt.in)
			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantAlerts, v.Alerts)
			assert.Equal(t, checked, v.CheckedAt)
		})
	}
}
