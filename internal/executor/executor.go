package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"copier/internal/logger"
	"copier/internal/model"
	"copier/internal/pipeline"
	"copier/internal/util"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

type Options struct {
	RetryAttempts    int
	RetryInitial     time.Duration
	RetryMax         time.Duration
	CreateTargetDirs bool
	SkipUnchanged    bool
}

// Executor performs copy and remove actions for resolved Mappings. It only
// touches the paths stored on the Mapping.
type Executor struct {
	opts  Options
	write func(dst string, r io.Reader, perm fs.FileMode) error
}

func New(opts Options) *Executor {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}

	return &Executor{
		opts:  opts,
		write: util.AtomicWrite,
	}
}

// Execute runs action, retrying transient failures with exponential backoff.
// Permanent failures are returned in the result; they never panic or stop
// the caller.
func (e *Executor) Execute(ctx context.Context, action model.Action) model.SyncResult {
	result := model.SyncResult{
		Action:  action,
		Started: time.Now(),
	}

	operation := func() (model.Outcome, error) {
		result.Attempts++

		outcome, err := e.run(action)
		if err != nil && !isTransient(err) {
			return outcome, backoff.Permanent(err)
		}
		return outcome, err
	}

	outcome, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(e.newBackOff()),
		backoff.WithMaxTries(uint(e.opts.RetryAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Log.Warn("retrying action",
				zap.String("copyset", action.Mapping.Copyset),
				zap.String("path", action.Mapping.RelTarget),
				zap.String("action", string(action.Kind)),
				zap.Int("attempt", result.Attempts),
				zap.Duration("wait", wait),
				zap.Error(err))
		}),
	)

	result.Duration = time.Since(result.Started)
	if err != nil {
		result.Outcome = model.OutcomeFailed
		result.Err = err
	} else {
		result.Outcome = outcome
	}

	logResult(result)
	return result
}

func (e *Executor) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.RetryInitial
	b.MaxInterval = e.opts.RetryMax
	return b
}

func (e *Executor) run(action model.Action) (model.Outcome, error) {
	switch action.Kind {
	case model.ActionSync:
		return e.sync(action.Mapping)
	case model.ActionRemove:
		return e.remove(action.Mapping)
	default:
		return "", fmt.Errorf("%w %q", errUnknownAction, action.Kind)
	}
}

func (e *Executor) sync(m *model.Mapping) (model.Outcome, error) {
	data, perm, err := readSource(m.Source)
	if errors.Is(err, fs.ErrNotExist) {
		return model.OutcomeSourceAbsent, nil
	}
	if err != nil {
		return "", err
	}

	if e.opts.SkipUnchanged && pipeline.SameContent(m.Target, data) {
		return model.OutcomeUnchanged, nil
	}

	if e.opts.CreateTargetDirs {
		if err := os.MkdirAll(m.TargetDir(), 0755); err != nil {
			return "", fmt.Errorf("failed to create target dir: %w", err)
		}
	}

	if err := e.write(m.Target, bytes.NewReader(data), perm); err != nil {
		return "", err
	}

	return model.OutcomeCopied, nil
}

func (e *Executor) remove(m *model.Mapping) (model.Outcome, error) {
	removed, err := util.RemoveIfExists(m.Target)
	if err != nil {
		return "", err
	}
	if !removed {
		return model.OutcomeAbsent, nil
	}
	return model.OutcomeRemoved, nil
}

func readSource(path string) ([]byte, fs.FileMode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("source %s: %w", path, errNotRegular)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read source: %w", err)
	}

	return data, info.Mode().Perm(), nil
}

func logResult(result model.SyncResult) {
	m := result.Action.Mapping
	fields := []zap.Field{
		zap.String("copyset", m.Copyset),
		zap.String("path", m.RelTarget),
		zap.String("action", string(result.Action.Kind)),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("attempts", result.Attempts),
		zap.Duration("took", result.Duration),
	}

	if result.Err != nil {
		logger.Log.Error("action failed", append(fields,
			zap.String("source", m.Source),
			zap.String("target", m.Target),
			zap.String("reason", result.Action.Reason),
			zap.Error(result.Err))...)
		return
	}

	logger.Log.Info("action done", fields...)
}
