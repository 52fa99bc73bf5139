package audit

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Recorder — куда стадии и агенты пишут шаги прогона.
type Recorder interface {
	Record(actor string, site Site, action, status, detail string)
}

// Buffer копит записи одной стадии до коммита в Trail.
// Используется одной горутиной: у каждой стадии свой буфер.
type Buffer struct {
	entries []Entry
	now     func() time.Time
}

func (b *Buffer) Record(actor string, site Site, action, status, detail string) {
	now := time.Now
	if b.now != nil {
		now = b.now
	}
	b.entries = append(b.entries, Entry{
		Actor:     actor,
		Site:      site,
		Action:    action,
		Status:    status,
		Detail:    detail,
		Timestamp: now(),
	})
}

// Len — сколько записей накопила стадия (атрибут спана стадии).
func (b *Buffer) Len() int { return len(b.entries) }

// Trail — упорядоченный журнал одного прогона. Номера (Seq) раздаются при коммите,
// поэтому порядок зависит от порядка коммитов, а не от того, какая горутина успела первой.
type Trail struct {
	runID string
	sink  Logger
	now   func() time.Time

	mu      sync.Mutex
	entries []Entry
}

// NewTrail создает журнал прогона. sink может быть nil.
func NewTrail(runID string, sink Logger) *Trail {
	return &Trail{runID: runID, sink: sink, now: time.Now}
}

// NewBuffer выдает буфер для стадии с тем же источником времени, что и у журнала.
func (t *Trail) NewBuffer() *Buffer {
	return &Buffer{now: t.now}
}

// Record коммитит одну запись сразу.
func (t *Trail) Record(actor string, site Site, action, status, detail string) {
	b := t.NewBuffer()
	b.Record(actor, site, action, status, detail)
	t.Commit(b)
}

// Commit переносит записи буфера в журнал и отдает их в приемник.
func (t *Trail) Commit(b *Buffer) {
	if b == nil || len(b.entries) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range b.entries {
		e.ID = ulid.Make().String()
		e.RunID = t.runID
		e.Seq = len(t.entries) + 1
		t.entries = append(t.entries, e)
		if t.sink != nil {
			t.sink.Log(e)
		}
	}
	b.entries = nil
}

// Entries возвращает копию журнала в порядке Seq.
func (t *Trail) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
