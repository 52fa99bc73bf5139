package audit

import "time"

// Site — где физически исполнялся шаг
type Site string

const (
	SiteEdge  Site = "edge"
	SiteCloud Site = "cloud"
)

// Entry — запись журнала аудита. Порядок внутри прогона задает Seq, а не время.
type Entry struct {
	ID        string    `json:"id"`     // ULID записи
	RunID     string    `json:"run_id"` // Прогон, породивший запись
	Seq       int       `json:"seq"`    // Логический номер внутри прогона (с 1)
	Actor     string    `json:"agent"`
	Site      Site      `json:"location"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Detail    string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}
