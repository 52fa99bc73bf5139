package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
)

const auditSchema = `CREATE TABLE IF NOT EXISTS audit_log (
	pos      BIGSERIAL PRIMARY KEY,
	id       TEXT NOT NULL UNIQUE,
	run_id   TEXT NOT NULL,
	seq      INTEGER NOT NULL,
	agent    TEXT NOT NULL,
	location TEXT NOT NULL,
	action   TEXT NOT NULL,
	status   TEXT NOT NULL,
	details  TEXT NOT NULL DEFAULT '',
	ts       TIMESTAMPTZ NOT NULL
)`

// AuditRepo — append-only журнал аудита в таблице audit_log.
// Порядок записи задает pos, его и используем для выборки последних.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Migrate создает таблицу, если ее нет
func (r *AuditRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("postgres: migrate audit_log: %w", err)
	}
	return nil
}

// Колонок во вставке; Postgres принимает не больше 65535 параметров на запрос
const (
	auditFields   = 9
	maxBindParams = 65535
)

var rowsPerInsert = maxBindParams / auditFields

// WriteBatch пишет пачку одним INSERT. Пачки больше лимита параметров режутся
// на несколько вставок внутри одной транзакции.
func (r *AuditRepo) WriteBatch(ctx context.Context, entries []audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) <= rowsPerInsert {
		return insertAudit(ctx, r.db, entries)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin audit batch: %w", err)
	}
	for start := 0; start < len(entries); start += rowsPerInsert {
		end := min(start+rowsPerInsert, len(entries))
		if err := insertAudit(ctx, tx, entries[start:end]); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit audit batch: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAudit(ctx context.Context, db execer, entries []audit.Entry) error {
	var sb strings.Builder
	vals := make([]interface{}, 0, len(entries)*auditFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range entries {
		p := i * auditFields
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9)

		vals = append(vals,
			e.ID, e.RunID, e.Seq, e.Actor, string(e.Site),
			e.Action, e.Status, e.Detail, e.Timestamp,
		)
	}

	query := "INSERT INTO audit_log (id, run_id, seq, agent, location, action, status, details, ts) VALUES " + sb.String()
	if _, err := db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write audit batch: %w", err)
	}
	return nil
}

// Recent возвращает последние limit записей, новые первыми. limit <= 0 — все записи.
func (r *AuditRepo) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	// LIMIT NULL в Postgres означает "без ограничения"
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, seq, agent, location, action, status, details, ts
		FROM audit_log
		ORDER BY pos DESC
		LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("postgres: query audit: %w", err)
	}
	defer rows.Close()

	out := make([]audit.Entry, 0)
	for rows.Next() {
		var (
			e    audit.Entry
			site string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Actor, &site, &e.Action, &e.Status, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan audit: %w", err)
		}
		e.Site = audit.Site(site)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *AuditRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM audit_log`); err != nil {
		return fmt.Errorf("postgres: clear audit: %w", err)
	}
	return nil
}
