package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/xela07ax/vehicle-health-pipeline/internal/audit"
)

var ErrInvalidGraph = errors.New("engine: invalid stage graph")

// Stage — узел графа прогона.
type Stage struct {
	Name string
	Site audit.Site
	Deps []string
	// When решает, выполняется ли стадия в этом прогоне. nil — всегда.
	// Пропущенная стадия ничего не пишет, но зависимости от нее считаются выполненными.
	When func(rs *runState) bool
	Run  func(ctx context.Context, rs *runState, rec audit.Recorder) error
}

// Graph выполняет стадии по уровням: уровень стадии на единицу больше максимального уровня ее зависимостей.
// Стадии одного уровня идут параллельно, записи аудита коммитятся в порядке объявления.
type Graph struct {
	stages []Stage
	levels [][]int
}

func NewGraph(stages []Stage) (*Graph, error) {
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		if s.Name == "" || s.Run == nil {
			return nil, fmt.Errorf("%w: stage #%d has no name or body", ErrInvalidGraph, i)
		}
		if _, dup := index[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", ErrInvalidGraph, s.Name)
		}
		index[s.Name] = i
	}

	level := make([]int, len(stages))
	state := make([]int, len(stages)) // 0 — не посещен, 1 — в стеке, 2 — готов

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case 1:
			return fmt.Errorf("%w: cycle through %q", ErrInvalidGraph, stages[i].Name)
		case 2:
			return nil
		}
		state[i] = 1
		for _, dep := range stages[i].Deps {
			j, ok := index[dep]
			if !ok {
				return fmt.Errorf("%w: stage %q depends on unknown %q", ErrInvalidGraph, stages[i].Name, dep)
			}
			if err := visit(j); err != nil {
				return err
			}
			if level[j]+1 > level[i] {
				level[i] = level[j] + 1
			}
		}
		state[i] = 2
		return nil
	}

	maxLevel := 0
	for i := range stages {
		if err := visit(i); err != nil {
			return nil, err
		}
		if level[i] > maxLevel {
			maxLevel = level[i]
		}
	}

	levels := make([][]int, maxLevel+1)
	for i := range stages {
		levels[level[i]] = append(levels[level[i]], i)
	}
	return &Graph{stages: stages, levels: levels}, nil
}

// Levels — имена стадий по уровням (для отладки и тестов)
func (g *Graph) Levels() [][]string {
	out := make([][]string, len(g.levels))
	for l, idx := range g.levels {
		for _, i := range idx {
			out[l] = append(out[l], g.stages[i].Name)
		}
	}
	return out
}

// Execute прогоняет граф. Отмена контекста останавливает планирование следующих уровней;
// записи уже завершенного уровня при этом коммитятся.
func (g *Graph) Execute(ctx context.Context, rs *runState, trail *audit.Trail) error {
	tracer := otel.Tracer("engine")

	for _, idx := range g.levels {
		if err := ctx.Err(); err != nil {
			return err
		}

		active := make([]int, 0, len(idx))
		for _, i := range idx {
			if s := g.stages[i]; s.When == nil || s.When(rs) {
				active = append(active, i)
			}
		}
		if len(active) == 0 {
			continue
		}

		buffers := make([]*audit.Buffer, len(active))
		eg, egCtx := errgroup.WithContext(ctx)
		for n, i := range active {
			s := g.stages[i]
			buf := trail.NewBuffer()
			buffers[n] = buf

			eg.Go(func() error {
				sCtx, span := tracer.Start(egCtx, "stage."+s.Name)
				span.SetAttributes(attribute.String("site", string(s.Site)))
				defer span.End()

				err := s.Run(sCtx, rs, buf)
				span.SetAttributes(attribute.Int("audit.entries", buf.Len()))
				if err != nil {
					span.RecordError(err)
					return fmt.Errorf("stage %s: %w", s.Name, err)
				}
				return nil
			})
		}
		err := eg.Wait()

		// active уже отсортирован по порядку объявления
		for _, buf := range buffers {
			trail.Commit(buf)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
