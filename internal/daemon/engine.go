package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"copier/internal/config"
	"copier/internal/dispatcher"
	"copier/internal/executor"
	"copier/internal/logger"
	"copier/internal/model"
	"copier/internal/registry"
	"copier/internal/repository"
	"copier/internal/startup"
	"copier/internal/watcher"

	"go.uber.org/zap"
)

var ErrNotRunning = errors.New("engine is not watching yet")

// Engine wires the registry, startup pass and dispatcher for one process
// lifetime.
type Engine struct {
	cfg       *config.Config
	copysets  []model.Copyset
	states    *StateTable
	history   *repository.HistoryRepository
	exec      *executor.Executor
	startedAt time.Time

	mu         sync.RWMutex
	dispatcher *dispatcher.Dispatcher
	ready      chan struct{}
}

// NewEngine builds an engine. history may be nil to disable persistence.
func NewEngine(cfg *config.Config, copysets []model.Copyset, history *repository.HistoryRepository) *Engine {
	return &Engine{
		cfg:      cfg,
		copysets: copysets,
		states:   NewStateTable(model.AllMappings(copysets)),
		history:  history,
		exec: executor.New(executor.Options{
			RetryAttempts:    cfg.RetryAttempts,
			RetryInitial:     cfg.RetryInitial,
			RetryMax:         cfg.RetryMax,
			CreateTargetDirs: cfg.CreateTargetDirs,
			SkipUnchanged:    cfg.SkipUnchanged,
		}),
		startedAt: time.Now(),
		ready:     make(chan struct{}),
	}
}

// Check validates the registry preconditions without registering watches.
func (e *Engine) Check() (*registry.Registry, error) {
	return registry.Plan(e.copysets)
}

// SyncOnce runs the startup pass alone.
func (e *Engine) SyncOnce(ctx context.Context) (startup.Summary, error) {
	return startup.New(e.exec, e.cfg.Workers, e.record).Run(ctx, model.AllMappings(e.copysets))
}

// Run registers the watches, performs the startup pass and dispatches
// events until ctx is cancelled. Configuration errors are returned before
// any watch is established.
func (e *Engine) Run(ctx context.Context) error {
	if _, err := e.Check(); err != nil {
		return err
	}

	w, err := watcher.New(e.cfg.EventBuffer)
	if err != nil {
		return err
	}

	reg, err := registry.New(e.copysets, w)
	if err != nil {
		_ = w.Close()
		return err
	}

	defer func() {
		if err := reg.Close(); err != nil {
			logger.Log.Warn("failed to release watches", zap.Error(err))
		}
	}()

	if _, err := startup.New(e.exec, e.cfg.Workers, e.record).Run(ctx, reg.Mappings()); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Log.Info("stopped during initial sync")
			return nil
		}
		return err
	}

	d := dispatcher.New(reg, e.exec, dispatcher.Options{
		Debounce:    e.cfg.Debounce,
		Workers:     e.cfg.Workers,
		QueueSize:   e.cfg.QueueSize,
		GracePeriod: e.cfg.GracePeriod,
		OnResult:    e.record,
	})

	e.mu.Lock()
	e.dispatcher = d
	close(e.ready)
	e.mu.Unlock()

	return d.Run(ctx, w)
}

// Ready is closed once the startup pass is done and events are consumed.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Resync forces a sync of every Mapping through the dispatcher.
func (e *Engine) Resync(reason string) error {
	e.mu.RLock()
	d := e.dispatcher
	e.mu.RUnlock()

	if d == nil {
		return ErrNotRunning
	}

	d.Resync(reason)
	return nil
}

func (e *Engine) Snapshots() []model.MappingSnapshot {
	return e.states.Snapshots()
}

func (e *Engine) StartedAt() time.Time {
	return e.startedAt
}

func (e *Engine) record(result model.SyncResult) {
	e.states.Record(result)

	if e.history == nil {
		return
	}
	if err := e.history.Save(result); err != nil {
		logger.Log.Warn("failed to save history",
			zap.Error(err))
	}
}
