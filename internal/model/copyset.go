package model

import "path/filepath"

// Copyset is a named group of Mappings sharing one source root and one
// target root. It is built once from configuration and never mutated.
type Copyset struct {
	Name       string
	SourceRoot string
	TargetRoot string
	Mappings   []*Mapping
}

// Mapping is a single source-file to target-file correspondence. Source and
// Target are resolved absolute paths; they are computed at configuration time
// and never re-derived from event data.
type Mapping struct {
	ID        int
	Copyset   string
	RelSource string
	RelTarget string
	Source    string
	Target    string
}

func (m *Mapping) SourceDir() string {
	return filepath.Dir(m.Source)
}

func (m *Mapping) SourceName() string {
	return filepath.Base(m.Source)
}

func (m *Mapping) TargetDir() string {
	return filepath.Dir(m.Target)
}

func (m *Mapping) String() string {
	return m.Copyset + ":" + m.RelTarget
}

// AllMappings flattens the Mappings of every Copyset, in configuration order.
func AllMappings(copysets []Copyset) []*Mapping {
	var out []*Mapping
	for _, cs := range copysets {
		out = append(out, cs.Mappings...)
	}
	return out
}
