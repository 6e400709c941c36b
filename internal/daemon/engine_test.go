package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"copier/internal/config"
	"copier/internal/model"
	"copier/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(copysets ...config.CopysetConfig) *config.Config {
	cfg := config.Default
	cfg.Debounce = 20 * time.Millisecond
	cfg.RetryAttempts = 2
	cfg.RetryInitial = time.Millisecond
	cfg.RetryMax = 5 * time.Millisecond
	cfg.GracePeriod = 2 * time.Second
	cfg.StatusAddr = ""
	cfg.Copysets = copysets
	return &cfg
}

type dirs struct {
	source, target string
}

func makeDirs(t *testing.T) dirs {
	t.Helper()

	root := t.TempDir()
	d := dirs{source: filepath.Join(root, "source"), target: filepath.Join(root, "target")}
	require.NoError(t, os.MkdirAll(d.source, 0755))
	require.NoError(t, os.MkdirAll(d.target, 0755))
	return d
}

func newEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()

	copysets, err := cfg.Resolve()
	require.NoError(t, err)
	return NewEngine(cfg, copysets, nil)
}

func runEngine(t *testing.T, e *Engine) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	select {
	case <-e.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("engine stopped early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("engine never became ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})

	return cancel
}

func fileContent(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}

func TestEngine_MirrorsCreateModifyDelete(t *testing.T) {
	d := makeDirs(t)
	cfg := testConfig(config.CopysetConfig{
		Name:    "my_copyset",
		Source:  d.source,
		Target:  d.target,
		Targets: []config.TargetConfig{{Source: "file-1.txt", Target: "file-1.txt"}},
	})

	e := newEngine(t, cfg)
	runEngine(t, e)

	src := filepath.Join(d.source, "file-1.txt")
	dst := filepath.Join(d.target, "file-1.txt")

	require.NoError(t, os.WriteFile(src, []byte("hello"), 0644))
	require.Eventually(t, func() bool { return fileContent(dst) == "hello" }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(src, []byte("hello again"), 0644))
	require.Eventually(t, func() bool { return fileContent(dst) == "hello again" }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(src))
	require.Eventually(t, func() bool {
		_, err := os.Stat(dst)
		return os.IsNotExist(err)
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return e.states.State(0) == model.StateSourceAbsent
	}, time.Second, 10*time.Millisecond)
}

func TestEngine_StartupSyncCopiesExistingSources(t *testing.T) {
	d := makeDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(d.source, "present.txt"), []byte("before start"), 0644))

	cfg := testConfig(config.CopysetConfig{
		Name:   "cs",
		Source: d.source,
		Target: d.target,
		Targets: []config.TargetConfig{
			{Source: "present.txt", Target: "present.txt"},
			{Source: "later.txt", Target: "later.txt"},
		},
	})

	e := newEngine(t, cfg)
	runEngine(t, e)

	assert.Equal(t, "before start", fileContent(filepath.Join(d.target, "present.txt")))
	assert.Equal(t, model.StateSynced, e.states.State(0))
	assert.Equal(t, model.StateSourceAbsent, e.states.State(1))

	require.NoError(t, os.WriteFile(filepath.Join(d.source, "later.txt"), []byte("created"), 0644))
	require.Eventually(t, func() bool {
		return fileContent(filepath.Join(d.target, "later.txt")) == "created"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEngine_FailingMappingDoesNotBlockOthers(t *testing.T) {
	d := makeDirs(t)
	cfg := testConfig(
		config.CopysetConfig{
			Name:    "broken",
			Source:  d.source,
			Target:  filepath.Join(d.target, "does-not-exist"),
			Targets: []config.TargetConfig{{Source: "a.txt", Target: "a.txt"}},
		},
		config.CopysetConfig{
			Name:    "healthy",
			Source:  d.source,
			Target:  d.target,
			Targets: []config.TargetConfig{{Source: "b.txt", Target: "b.txt"}},
		},
	)
	cfg.Workers = 1

	e := newEngine(t, cfg)
	runEngine(t, e)

	for i := range 3 {
		require.NoError(t, os.WriteFile(filepath.Join(d.source, "a.txt"), []byte{byte(i)}, 0644))
		require.NoError(t, os.WriteFile(filepath.Join(d.source, "b.txt"), []byte("ok"), 0644))
	}

	require.Eventually(t, func() bool {
		return fileContent(filepath.Join(d.target, "b.txt")) == "ok"
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, snap := range e.Snapshots() {
			if snap.Copyset == "broken" {
				return snap.Failed > 0 && snap.State != model.StateSynced
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEngine_Resync(t *testing.T) {
	d := makeDirs(t)
	cfg := testConfig(config.CopysetConfig{
		Name:    "cs",
		Source:  d.source,
		Target:  d.target,
		Targets: []config.TargetConfig{{Source: "f.txt", Target: "f.txt"}},
	})
	require.NoError(t, os.WriteFile(filepath.Join(d.source, "f.txt"), []byte("v1"), 0644))

	e := newEngine(t, cfg)
	assert.ErrorIs(t, e.Resync("test"), ErrNotRunning)

	runEngine(t, e)

	dst := filepath.Join(d.target, "f.txt")
	require.NoError(t, os.WriteFile(dst, []byte("tampered"), 0644))

	require.NoError(t, e.Resync("test"))
	require.Eventually(t, func() bool { return fileContent(dst) == "v1" }, 5*time.Second, 10*time.Millisecond)
}

func TestEngine_RejectsTargetInsideWatchedDirectory(t *testing.T) {
	d := makeDirs(t)
	cfg := testConfig(config.CopysetConfig{
		Name:    "loop",
		Source:  d.source,
		Targets: []config.TargetConfig{{Source: "a.txt", Target: "b.txt"}},
	})

	err := newEngine(t, cfg).Run(context.Background())
	assert.ErrorIs(t, err, registry.ErrTargetInWatchedDir)
}

func TestEngine_MissingSourceDirectory(t *testing.T) {
	d := makeDirs(t)
	cfg := testConfig(config.CopysetConfig{
		Name:    "cs",
		Source:  filepath.Join(d.source, "missing"),
		Target:  d.target,
		Targets: []config.TargetConfig{{Source: "a.txt", Target: "a.txt"}},
	})

	err := newEngine(t, cfg).Run(context.Background())
	assert.ErrorIs(t, err, registry.ErrMissingDirectory)
}

func TestEngine_StopDuringStartupIsClean(t *testing.T) {
	d := makeDirs(t)
	e := newEngine(t, testConfig(config.CopysetConfig{
		Name:    "cs",
		Source:  d.source,
		Target:  d.target,
		Targets: []config.TargetConfig{{Source: "a.txt", Target: "a.txt"}},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, e.Run(ctx))

	select {
	case <-e.Ready():
		t.Fatal("engine must not report ready after stopping during startup")
	default:
	}
}

func TestEngine_SyncOnce(t *testing.T) {
	d := makeDirs(t)
	require.NoError(t, os.WriteFile(filepath.Join(d.source, "a.txt"), []byte("once"), 0644))
	cfg := testConfig(config.CopysetConfig{
		Name:    "cs",
		Source:  d.source,
		Target:  d.target,
		Targets: []config.TargetConfig{{Source: "a.txt", Target: "a.txt"}},
	})

	summary, err := newEngine(t, cfg).SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Copied)
	assert.Equal(t, "once", fileContent(filepath.Join(d.target, "a.txt")))
}
