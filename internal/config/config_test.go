package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSettings = `
debounce = "50ms"
workers = 2
`

const sampleCopysets = `
[[copysets]]
name = "my_copyset"
source = "/data/source"
target = "/data/target"

  [[copysets.targets]]
  source = "file-1.txt"
  target = "file-1.txt"

  [[copysets.targets]]
  source = "conf/app.ini"
  target = "app.ini"

[[copysets]]
name = "same_root"
source = "/srv/shared"

  [[copysets.targets]]
  source = "in/settings.json"
  target = "out/settings.json"
`

const sampleConfig = sampleSettings + sampleCopysets

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "container-copier.toml", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 50*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, Default.RetryAttempts, cfg.RetryAttempts)
	assert.Equal(t, Default.StatusAddr, cfg.StatusAddr)
	assert.True(t, cfg.SkipUnchanged)
	require.Len(t, cfg.Copysets, 2)

	first := cfg.Copysets[0]
	assert.Equal(t, "my_copyset", first.Name)
	assert.Equal(t, "/data/source", first.Source)
	assert.Equal(t, "/data/target", first.Target)
	require.Len(t, first.Targets, 2)
	assert.Equal(t, "conf/app.ini", first.Targets[1].Source)
	assert.Equal(t, "app.ini", first.Targets[1].Target)
}

func TestLoad_WithoutExtension(t *testing.T) {
	path := writeConfig(t, "copier", sampleConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Copysets, 2)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("COPIER_WORKERS", "7")
	t.Setenv("COPIER_GRACE_PERIOD", "1s")

	cfg, err := Load(writeConfig(t, "c.toml", sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Workers)
	assert.Equal(t, time.Second, cfg.GracePeriod)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidSettings(t *testing.T) {
	_, err := Load(writeConfig(t, "c.toml", "workers = 0\n"+sampleCopysets))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResolve(t *testing.T) {
	cfg, err := Load(writeConfig(t, "c.toml", sampleConfig))
	require.NoError(t, err)

	copysets, err := cfg.Resolve()
	require.NoError(t, err)
	require.Len(t, copysets, 2)

	cs := copysets[0]
	assert.Equal(t, "/data/source", cs.SourceRoot)
	assert.Equal(t, "/data/target", cs.TargetRoot)
	require.Len(t, cs.Mappings, 2)
	assert.Equal(t, "/data/source/file-1.txt", cs.Mappings[0].Source)
	assert.Equal(t, "/data/target/file-1.txt", cs.Mappings[0].Target)
	assert.Equal(t, "/data/source/conf/app.ini", cs.Mappings[1].Source)
	assert.Equal(t, "/data/target/app.ini", cs.Mappings[1].Target)

	shared := copysets[1]
	assert.Equal(t, "/srv/shared", shared.TargetRoot, "target root defaults to source root")
	assert.Equal(t, "/srv/shared/out/settings.json", shared.Mappings[0].Target)

	ids := map[int]bool{}
	for _, cs := range copysets {
		for _, m := range cs.Mappings {
			ids[m.ID] = true
		}
	}
	assert.Len(t, ids, 3, "mapping ids are unique")
}

func TestResolve_Rejects(t *testing.T) {
	valid := func() CopysetConfig {
		return CopysetConfig{
			Name:    "cs",
			Source:  "/src",
			Target:  "/dst",
			Targets: []TargetConfig{{Source: "a", Target: "a"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no copysets", func(c *Config) { c.Copysets = nil }},
		{"missing name", func(c *Config) { c.Copysets[0].Name = "" }},
		{"duplicate name", func(c *Config) { c.Copysets = append(c.Copysets, c.Copysets[0]) }},
		{"relative source root", func(c *Config) { c.Copysets[0].Source = "src" }},
		{"relative target root", func(c *Config) { c.Copysets[0].Target = "dst" }},
		{"no targets", func(c *Config) { c.Copysets[0].Targets = nil }},
		{"escaping source", func(c *Config) { c.Copysets[0].Targets[0].Source = "../etc/passwd" }},
		{"absolute target", func(c *Config) { c.Copysets[0].Targets[0].Target = "/etc/passwd" }},
		{"empty path", func(c *Config) { c.Copysets[0].Targets[0].Target = "" }},
		{"root as target", func(c *Config) { c.Copysets[0].Targets[0].Target = "." }},
		{"root as source", func(c *Config) { c.Copysets[0].Targets[0].Source = "." }},
		{"path collapsing to root", func(c *Config) { c.Copysets[0].Targets[0].Target = "a/.." }},
		{"self copy", func(c *Config) { c.Copysets[0].Target = "" }},
		{"duplicate target", func(c *Config) {
			c.Copysets[0].Targets = append(c.Copysets[0].Targets, TargetConfig{Source: "b", Target: "a"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default
			cfg.Copysets = []CopysetConfig{valid()}
			tt.mutate(&cfg)

			_, err := cfg.Resolve()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestResolve_FanOutAllowed(t *testing.T) {
	cfg := Default
	cfg.Copysets = []CopysetConfig{
		{Name: "a", Source: "/src", Target: "/dst1", Targets: []TargetConfig{{Source: "f", Target: "f"}}},
		{Name: "b", Source: "/src", Target: "/dst2", Targets: []TargetConfig{{Source: "f", Target: "f"}}},
	}

	copysets, err := cfg.Resolve()
	require.NoError(t, err)
	assert.Equal(t, copysets[0].Mappings[0].Source, copysets[1].Mappings[0].Source)
}
