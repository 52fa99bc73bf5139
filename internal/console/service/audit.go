package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
)

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 1000
)

// AuditLogProvider описывает контракт чтения и очистки журнала аудита.
// Реализуется audit.AgentFS (сброс буфера перед чтением) или напрямую хранилищем.
type AuditLogProvider interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
	Clear(ctx context.Context) error
}

type AuditService struct {
	repo AuditLogProvider
}

func NewAuditService(repo AuditLogProvider) *AuditService {
	return &AuditService{
		repo: repo,
	}
}

// ClampLimit приводит запрошенный размер выборки к допустимому диапазону.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultAuditLimit
	case limit > MaxAuditLimit:
		return MaxAuditLimit
	}
	return limit
}

// FetchLogs отдает последние записи журнала, новые первыми.
func (s *AuditService) FetchLogs(ctx context.Context, limit int) ([]audit.Entry, error) {
	logs, err := s.repo.Recent(ctx, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch logs: %w", err)
	}
	if logs == nil {
		logs = []audit.Entry{}
	}
	return logs, nil
}

func (s *AuditService) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("audit_service: failed to clear logs: %w", err)
	}
	return nil
}
