package startup

import (
	"context"
	"sync"

	"copier/internal/logger"
	"copier/internal/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Executor interface {
	Execute(ctx context.Context, action model.Action) model.SyncResult
}

type Summary struct {
	Copied       int
	Unchanged    int
	SourceAbsent int
	Failed       int
}

// Synchronizer copies every Mapping once before events are consumed, so
// targets reflect sources that changed while nothing was watching.
type Synchronizer struct {
	exec     Executor
	parallel int
	onResult func(model.SyncResult)
}

func New(exec Executor, parallel int, onResult func(model.SyncResult)) *Synchronizer {
	if parallel < 1 {
		parallel = 1
	}
	return &Synchronizer{exec: exec, parallel: parallel, onResult: onResult}
}

// Run syncs all mappings. Individual failures are counted, not returned; the
// only error is ctx's.
func (s *Synchronizer) Run(ctx context.Context, mappings []*model.Mapping) (Summary, error) {
	var (
		mu      sync.Mutex
		summary Summary
	)

	g := new(errgroup.Group)
	g.SetLimit(s.parallel)

	for _, m := range mappings {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result := s.exec.Execute(ctx, model.Action{
				Kind:    model.ActionSync,
				Mapping: m,
				Reason:  "startup",
			})
			if s.onResult != nil {
				s.onResult(result)
			}

			mu.Lock()
			defer mu.Unlock()

			switch result.Outcome {
			case model.OutcomeCopied:
				summary.Copied++
			case model.OutcomeUnchanged:
				summary.Unchanged++
			case model.OutcomeSourceAbsent:
				summary.SourceAbsent++
				logger.Log.Info("source absent, waiting for it to appear",
					zap.String("copyset", m.Copyset),
					zap.String("source", m.Source))
			default:
				summary.Failed++
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	logger.Log.Info("initial sync finished",
		zap.Int("copied", summary.Copied),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("source_absent", summary.SourceAbsent),
		zap.Int("failed", summary.Failed))

	return summary, err
}
