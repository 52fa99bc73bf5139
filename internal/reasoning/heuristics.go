package reasoning

import (
	"github.com/xela07ax/vehicle-health-pipeline/internal/domain"
)

// FaultThresholdRMS — порог вибрации, выше которого считаем, что есть неисправность
const FaultThresholdRMS = 1.0

type faultProfile struct {
	faultType string
	severity  string
	message   string
	tips      []string
	upload    bool
}

// Порядок задает приоритет при нескольких кодах одновременно.
var faultProfiles = []struct {
	code    string
	profile faultProfile
}{
	{domain.CodeRodKnock, faultProfile{
		faultType: domain.FaultRodKnock,
		severity:  domain.SeverityCritical,
		message:   "Critical engine issue detected. Please pull over safely.",
		tips:      []string{"Do not exceed 30 km/h.", "Avoid highway driving.", "Watch engine temperature gauge."},
		upload:    true,
	}},
	{domain.CodeMisfire, faultProfile{
		faultType: domain.FaultMisfire,
		severity:  domain.SeverityMedium,
		message:   "Engine misfire detected. Service required.",
		tips:      []string{"Avoid heavy acceleration.", "Turn off AC to reduce engine load."},
		upload:    true,
	}},
	{domain.CodeLooseMount, faultProfile{
		faultType: domain.FaultMountFailure,
		severity:  domain.SeverityMedium,
		message:   "Excessive vibration detected. Drive cautiously.",
		tips:      []string{"Avoid rough roads.", "Drive smoothly to minimize vibration."},
		upload:    true,
	}},
}

var normalProfile = faultProfile{
	faultType: domain.FaultNormal,
	severity:  domain.SeverityLow,
	message:   "Systems nominal.",
	tips:      []string{"Maintain regular service intervals.", "Check tire pressure monthly."},
}

// diagnosisHeuristic Неисправность есть, если вибрация выше порога или пришел известный код.
func diagnosisHeuristic(input map[string]any) map[string]any {
	codes := stringsOf(input["can_codes"])
	rms := floatOf(input["rms"])

	p := normalProfile
	known := false
	for _, fp := range faultProfiles {
		if contains(codes, fp.code) {
			p, known = fp.profile, true
			break
		}
	}
	detected := rms > FaultThresholdRMS || known

	confidence := 1.0
	if detected {
		confidence = 0.99
	}

	tips := make([]any, 0, len(p.tips))
	for _, t := range p.tips {
		tips = append(tips, t)
	}

	return map[string]any{
		"fault_detected":          detected,
		"fault_type":              p.faultType,
		"severity":                p.severity,
		"driver_friendly_message": p.message,
		"safety_tips":             tips,
		"upload_required":         p.upload,
		"confidence":              confidence,
	}
}

func rcaHeuristic(input map[string]any) map[string]any {
	ft, _ := input["fault_type"].(string)
	switch ft {
	case domain.FaultRodKnock:
		return map[string]any{
			"is_batch_defect":         true,
			"batch_id":                "Batch-2023-A",
			"manufacturing_action":    "Supplier Audit",
			"estimated_cost_per_unit": 12500.0,
			"ota_eligible":            false,
		}
	case domain.FaultMisfire:
		return map[string]any{
			"is_batch_defect":         true,
			"batch_id":                "Soft-ECU-v1.2",
			"manufacturing_action":    "OTA Patch",
			"estimated_cost_per_unit": 0.0,
			"ota_eligible":            true,
		}
	default:
		return map[string]any{
			"is_batch_defect":         false,
			"batch_id":                "",
			"manufacturing_action":    "None",
			"estimated_cost_per_unit": 0.0,
			"ota_eligible":            false,
		}
	}
}

func stringsOf(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func floatOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
