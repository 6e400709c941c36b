package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"copier/internal/logger"
	"copier/internal/model"

	"go.uber.org/zap"
)

var (
	ErrMissingDirectory   = errors.New("watched directory does not exist")
	ErrTargetInWatchedDir = errors.New("target lies inside a watched directory")
)

// Notifier is the native notification facility the registry registers
// directory watches with.
type Notifier interface {
	Add(dir string) error
	Close() error
}

// Entry is one watched directory and the Mappings whose source lives in it,
// indexed by file name.
type Entry struct {
	Dir    string
	byName map[string][]*model.Mapping
	all    []*model.Mapping
}

// Registry owns one watch per distinct source directory. The index is built
// once in New and is read-only afterwards, so lookups need no locking.
type Registry struct {
	notifier Notifier
	entries  map[string]*Entry
	dirs     []string
	mappings []*model.Mapping
}

// Plan computes the watch entries for the copysets and validates them
// without touching the notifier.
func Plan(copysets []model.Copyset) (*Registry, error) {
	r := &Registry{
		entries:  make(map[string]*Entry),
		mappings: model.AllMappings(copysets),
	}

	for _, m := range r.mappings {
		dir := m.SourceDir()
		entry, ok := r.entries[dir]
		if !ok {
			entry = &Entry{Dir: dir, byName: make(map[string][]*model.Mapping)}
			r.entries[dir] = entry
			r.dirs = append(r.dirs, dir)
		}

		name := m.SourceName()
		entry.byName[name] = append(entry.byName[name], m)
		entry.all = append(entry.all, m)
	}

	slices.Sort(r.dirs)

	if err := r.validateTargets(); err != nil {
		return nil, err
	}
	if err := r.validateDirs(); err != nil {
		return nil, err
	}

	return r, nil
}

// New validates the copysets and registers one watch per directory. On any
// failure the watches registered so far are released.
func New(copysets []model.Copyset, notifier Notifier) (*Registry, error) {
	r, err := Plan(copysets)
	if err != nil {
		return nil, err
	}

	r.notifier = notifier
	for _, dir := range r.dirs {
		if err := notifier.Add(dir); err != nil {
			_ = notifier.Close()
			return nil, fmt.Errorf("failed to register watch: %w", err)
		}
	}

	logger.Log.Info("watches registered",
		zap.Int("directories", len(r.dirs)),
		zap.Int("mappings", len(r.mappings)))

	return r, nil
}

func (r *Registry) validateTargets() error {
	for _, m := range r.mappings {
		for _, dir := range r.dirs {
			if within(dir, m.Target) {
				return fmt.Errorf("%w: %s (%s) is under %s", ErrTargetInWatchedDir, m.Target, m, dir)
			}
		}
	}
	return nil
}

func (r *Registry) validateDirs() error {
	for _, dir := range r.dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMissingDirectory, dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", ErrMissingDirectory, dir)
		}
	}
	return nil
}

// Lookup returns the Mappings whose source is name inside dir. Unconfigured
// names yield nil.
func (r *Registry) Lookup(dir, name string) []*model.Mapping {
	entry, ok := r.entries[dir]
	if !ok {
		return nil
	}
	return entry.byName[name]
}

// MappingsIn returns every Mapping owned by the watched directory dir.
func (r *Registry) MappingsIn(dir string) []*model.Mapping {
	entry, ok := r.entries[dir]
	if !ok {
		return nil
	}
	return entry.all
}

func (r *Registry) Mappings() []*model.Mapping {
	return r.mappings
}

func (r *Registry) Dirs() []string {
	return r.dirs
}

// Close releases all watches together.
func (r *Registry) Close() error {
	if r.notifier == nil {
		return nil
	}
	return r.notifier.Close()
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
