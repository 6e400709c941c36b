package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"copier/internal/model"
)

var ErrInvalidConfig = errors.New("invalid config")

// Resolve turns the parsed copysets into the immutable data model. All paths
// are cleaned and joined here; relative paths that would escape their root are
// rejected.
func (c *Config) Resolve() ([]model.Copyset, error) {
	if len(c.Copysets) == 0 {
		return nil, fmt.Errorf("%w: no copysets configured", ErrInvalidConfig)
	}

	names := make(map[string]bool)
	targets := make(map[string]*model.Mapping)
	copysets := make([]model.Copyset, 0, len(c.Copysets))
	nextID := 0

	for i, raw := range c.Copysets {
		if raw.Name == "" {
			return nil, fmt.Errorf("%w: copyset #%d has no name", ErrInvalidConfig, i+1)
		}
		if names[raw.Name] {
			return nil, fmt.Errorf("%w: duplicate copyset name %q", ErrInvalidConfig, raw.Name)
		}
		names[raw.Name] = true

		sourceRoot, err := absRoot(raw.Name, "source", raw.Source)
		if err != nil {
			return nil, err
		}

		targetRoot := sourceRoot
		if raw.Target != "" {
			if targetRoot, err = absRoot(raw.Name, "target", raw.Target); err != nil {
				return nil, err
			}
		}

		if len(raw.Targets) == 0 {
			return nil, fmt.Errorf("%w: copyset %q has no targets", ErrInvalidConfig, raw.Name)
		}

		cs := model.Copyset{
			Name:       raw.Name,
			SourceRoot: sourceRoot,
			TargetRoot: targetRoot,
			Mappings:   make([]*model.Mapping, 0, len(raw.Targets)),
		}

		for _, t := range raw.Targets {
			relSource, err := localPath(raw.Name, t.Source)
			if err != nil {
				return nil, err
			}
			relTarget, err := localPath(raw.Name, t.Target)
			if err != nil {
				return nil, err
			}

			m := &model.Mapping{
				ID:        nextID,
				Copyset:   raw.Name,
				RelSource: relSource,
				RelTarget: relTarget,
				Source:    filepath.Join(sourceRoot, relSource),
				Target:    filepath.Join(targetRoot, relTarget),
			}
			nextID++

			if m.Source == m.Target {
				return nil, fmt.Errorf("%w: copyset %q maps %s onto itself", ErrInvalidConfig, raw.Name, m.Source)
			}
			if other, ok := targets[m.Target]; ok {
				return nil, fmt.Errorf("%w: target %s is written by both %s and %s",
					ErrInvalidConfig, m.Target, other, m)
			}
			targets[m.Target] = m

			cs.Mappings = append(cs.Mappings, m)
		}

		copysets = append(copysets, cs)
	}

	return copysets, nil
}

func absRoot(copyset, field, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: copyset %q has no %s", ErrInvalidConfig, copyset, field)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: copyset %q %s %q is not absolute", ErrInvalidConfig, copyset, field, path)
	}
	return filepath.Clean(path), nil
}

func localPath(copyset, rel string) (string, error) {
	clean := filepath.Clean(rel)
	if !filepath.IsLocal(rel) || clean == "." {
		return "", fmt.Errorf("%w: copyset %q path %q must name a file within its root",
			ErrInvalidConfig, copyset, rel)
	}
	return clean, nil
}
