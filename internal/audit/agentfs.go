package audit

/*
Файл agentfs.go реализует асинхронный приемник журнала аудита (append-only).

- Non-blocking Logging: прогоны пайплайна отдают записи в буферизованный канал
  и не ждут базу. Задержки хранилища не влияют на время прогона.
- Total Order: канал читает единственный воркер, поэтому записи всех прогонов
  попадают в хранилище в одном общем порядке.
- Batching: записи копятся и пишутся пачкой по таймеру или по размеру пачки.
- Drain Pattern: Stop закрывает вход и ждет, пока воркер вычитает остаток (Final Flush).
- Ошибки записи только логируются и никогда не прерывают прогон.
*/

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("audit: sink is stopped")

// Storage определяет, куда физически сохраняются записи
type Storage interface {
	// WriteBatch сохраняет пачку записей за один раз
	WriteBatch(ctx context.Context, entries []Entry) error
}

// Store — хранилище, которое умеет еще и читать/очищать журнал.
type Store interface {
	Storage
	// Recent возвращает последние limit записей, новые первыми
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Clear(ctx context.Context) error
}

// Logger — то, что нужно прогону от приемника
type Logger interface {
	Log(entry Entry)
}

// MaxBatchSize — верхняя граница пачки на одну запись в хранилище
const MaxBatchSize = 5000

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// BufferFill, если задан, отражает текущую заполненность канала
	BufferFill prometheus.Gauge
}

func (o *Options) setDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 10000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchSize > MaxBatchSize {
		o.BatchSize = MaxBatchSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 500 * time.Millisecond
	}
}

type AgentFS struct {
	ch     chan Entry
	sync   chan chan struct{}
	done   chan struct{}
	repo   Store
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAgentFS(repo Store, logger *zap.Logger, opts Options) *AgentFS {
	opts.setDefaults()
	return &AgentFS{
		ch:     make(chan Entry, opts.BufferSize),
		sync:   make(chan chan struct{}),
		done:   make(chan struct{}),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "agentfs")),
	}
}

func (fs *AgentFS) Start() {
	fs.wg.Add(1)
	go fs.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (fs *AgentFS) Stop() {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return
	}
	fs.closed = true
	fs.logger.Info("stopping auditor: closing channel and flushing buffer...")
	close(fs.ch)
	fs.mu.Unlock()

	fs.wg.Wait()
	fs.logger.Info("auditor stopped gracefully")
}

func (fs *AgentFS) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		fs.logger.Warn("audit entry dropped: auditor is stopping",
			zap.String("run_id", entry.RunID), zap.Int("seq", entry.Seq))
		return
	}

	// Load Shedding: при переполнении не блокируем прогон
	select {
	case fs.ch <- entry:
		if fs.opts.BufferFill != nil {
			fs.opts.BufferFill.Set(float64(len(fs.ch)))
		}
	default:
		fs.logger.Error("audit_buffer_overflow",
			zap.String("run_id", entry.RunID),
			zap.String("agent", entry.Actor),
			zap.String("action", entry.Action),
		)
	}
}

// Sync дожидается, пока все уже принятые записи окажутся в хранилище.
func (fs *AgentFS) Sync(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case fs.sync <- ack:
	case <-fs.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recent отдает последние записи журнала (новые первыми).
func (fs *AgentFS) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := fs.Sync(ctx); err != nil && !errors.Is(err, ErrStopped) {
		return nil, err
	}
	return fs.repo.Recent(ctx, limit)
}

// Clear очищает журнал целиком.
func (fs *AgentFS) Clear(ctx context.Context) error {
	if err := fs.Sync(ctx); err != nil && !errors.Is(err, ErrStopped) {
		return err
	}
	return fs.repo.Clear(ctx)
}

func (fs *AgentFS) worker() {
	defer fs.wg.Done()
	defer close(fs.done)

	batch := make([]Entry, 0, fs.opts.BatchSize)
	ticker := time.NewTicker(fs.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: контекст вызывающего прогона может быть уже отменен
			if err := fs.repo.WriteBatch(context.Background(), batch); err != nil {
				fs.logger.Error("audit flush failed", zap.Int("batch", len(batch)), zap.Error(err))
			}
			batch = batch[:0]
		}
		if fs.opts.BufferFill != nil {
			fs.opts.BufferFill.Set(float64(len(fs.ch)))
		}
	}

	for {
		select {
		case entry, ok := <-fs.ch:
			if !ok {
				// Канал закрыт в Stop(): остаток уже вычитан, делаем финальный сброс
				flush()
				fs.logger.Info("audit worker finished")
				return
			}
			batch = append(batch, entry)
			if len(batch) >= fs.opts.BatchSize {
				flush()
			}
		case ack := <-fs.sync:
			fs.drain(&batch)
			flush()
			close(ack)
		case <-ticker.C:
			flush()
		}
	}
}

// drain забирает из канала всё, что уже успели отправить.
func (fs *AgentFS) drain(batch *[]Entry) {
	for {
		select {
		case entry, ok := <-fs.ch:
			if !ok {
				return
			}
			*batch = append(*batch, entry)
		default:
			return
		}
	}
}
