package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"copier/internal/logger"
	"copier/internal/model"
	"copier/internal/pipeline"
	"copier/internal/worker"

	"go.uber.org/zap"
)

// Index resolves watched directories and file names to Mappings. It must be
// safe for concurrent reads.
type Index interface {
	Lookup(dir, name string) []*model.Mapping
	MappingsIn(dir string) []*model.Mapping
	Mappings() []*model.Mapping
}

type Executor interface {
	Execute(ctx context.Context, action model.Action) model.SyncResult
}

type EventSource interface {
	Events() <-chan model.FileEvent
}

type Options struct {
	Debounce    time.Duration
	Workers     int
	QueueSize   int
	GracePeriod time.Duration
	OnResult    func(model.SyncResult)
}

// lane serializes execution for one Mapping. While an action runs, newer
// actions wait in next; a newer one replaces an older one still waiting.
type lane struct {
	mu      sync.Mutex
	running bool
	next    *model.Action
}

// Dispatcher turns raw events into debounced, per-Mapping serialized actions
// executed on a bounded worker pool. The read loop itself never touches the
// disk.
type Dispatcher struct {
	index     Index
	exec      Executor
	opts      Options
	pool      *worker.Pool
	debouncer *pipeline.Debouncer[int, model.Action]
	lanes     map[int]*lane
}

func New(index Index, exec Executor, opts Options) *Dispatcher {
	d := &Dispatcher{
		index: index,
		exec:  exec,
		opts:  opts,
		pool:  worker.New(opts.Workers, opts.QueueSize),
		lanes: make(map[int]*lane),
	}

	for _, m := range index.Mappings() {
		d.lanes[m.ID] = &lane{}
	}
	d.debouncer = pipeline.NewDebouncer(opts.Debounce, d.forward)

	return d
}

// Run drains src until ctx is done or the stream ends, then flushes pending
// actions and waits up to the grace period for running ones.
func (d *Dispatcher) Run(ctx context.Context, src EventSource) error {
	events := src.Events()
	logger.Log.Info("processing events",
		zap.Int("mappings", len(d.lanes)),
		zap.Duration("debounce", d.opts.Debounce))

	for {
		select {
		case <-ctx.Done():
			return d.shutdown()

		case event, ok := <-events:
			if !ok {
				logger.Log.Warn("event stream ended")
				return d.shutdown()
			}
			d.Handle(event)
		}
	}
}

// Handle resolves and classifies a single raw event.
func (d *Dispatcher) Handle(event model.FileEvent) {
	if event.Kind.Has(model.KindOverflow) {
		mappings := d.index.Mappings()
		if event.Dir != "" {
			mappings = d.index.MappingsIn(event.Dir)
		}
		d.schedule(mappings, model.ActionSync, "overflow")
		return
	}

	mappings := d.index.Lookup(event.Dir, event.Name)
	if len(mappings) == 0 {
		return
	}

	kind, ok := classify(event.Kind)
	if !ok {
		return
	}

	logger.Log.Debug("event",
		zap.String("dir", event.Dir),
		zap.String("name", event.Name),
		zap.String("kind", event.Kind.String()),
		zap.Int("mappings", len(mappings)))

	d.schedule(mappings, kind, event.Kind.String())
}

// Resync schedules a forced sync of every Mapping.
func (d *Dispatcher) Resync(reason string) {
	d.schedule(d.index.Mappings(), model.ActionSync, reason)
}

// classify maps a kind bitmask to an action. Deletion wins when a single
// notification carries several kinds.
func classify(kind model.EventKind) (model.ActionKind, bool) {
	switch {
	case kind.Has(model.KindDelete):
		return model.ActionRemove, true
	case kind.Has(model.KindCreate), kind.Has(model.KindModify):
		return model.ActionSync, true
	default:
		return "", false
	}
}

func (d *Dispatcher) schedule(mappings []*model.Mapping, kind model.ActionKind, reason string) {
	now := time.Now()
	for _, m := range mappings {
		action := model.Action{Kind: kind, Mapping: m, Reason: reason, Queued: now}
		if !d.debouncer.Push(m.ID, action) {
			logger.Log.Debug("dispatcher stopping, action ignored",
				zap.String("mapping", m.String()))
		}
	}
}

// forward is called once a Mapping's debounce window closes.
func (d *Dispatcher) forward(id int, action model.Action) {
	l, ok := d.lanes[id]
	if !ok {
		return
	}

	l.mu.Lock()
	if l.running {
		l.next = &action
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	err := d.pool.Submit(func(ctx context.Context) {
		d.drain(ctx, l, action)
	})
	if err != nil {
		l.mu.Lock()
		l.running = false
		l.next = nil
		l.mu.Unlock()

		logger.Log.Warn("action dropped",
			zap.String("copyset", action.Mapping.Copyset),
			zap.String("path", action.Mapping.RelTarget),
			zap.String("action", string(action.Kind)),
			zap.Error(err))
	}
}

func (d *Dispatcher) drain(ctx context.Context, l *lane, action model.Action) {
	for {
		result := d.exec.Execute(ctx, action)
		if d.opts.OnResult != nil {
			d.opts.OnResult(result)
		}

		l.mu.Lock()
		if l.next == nil {
			l.running = false
			l.mu.Unlock()
			return
		}
		action = *l.next
		l.next = nil
		l.mu.Unlock()
	}
}

func (d *Dispatcher) shutdown() error {
	logger.Log.Info("dispatcher stopping",
		zap.Int("pending", d.debouncer.Pending()))

	// Flush can block on a full queue, so the grace period starts before it.
	deadline := time.Now().Add(d.opts.GracePeriod)
	abort := time.AfterFunc(d.opts.GracePeriod, d.pool.Abort)
	defer abort.Stop()

	d.debouncer.Flush()

	if err := d.pool.Close(time.Until(deadline)); err != nil {
		if errors.Is(err, worker.ErrGraceExceeded) {
			logger.Log.Warn("in-flight actions did not finish within grace period",
				zap.Duration("grace_period", d.opts.GracePeriod))
		}
		return err
	}

	return nil
}
