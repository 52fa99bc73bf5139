package domain

import "time"

// ComplianceStatus — итог проверки политики
type ComplianceStatus string

const (
	StatusCompliant      ComplianceStatus = "COMPLIANT"
	StatusViolation      ComplianceStatus = "VIOLATION"
	StatusReviewRequired ComplianceStatus = "REVIEW_REQUIRED"
	StatusBlocked        ComplianceStatus = "BLOCKED"
)

// ComplianceVerdict вычисляется один раз после всех решений прогона и больше не меняется.
type ComplianceVerdict struct {
	Status    ComplianceStatus `json:"status"`
	Alerts    []string         `json:"ue_alerts"`
	CheckedAt time.Time        `json:"checked_at"`
}
