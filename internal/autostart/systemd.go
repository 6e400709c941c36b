package autostart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/template"
)

// The unit is skipped rather than failed while the config volume is not
// mounted yet.
const unitTemplate = `[Unit]
Description=Mirror configured files into their target locations
After=local-fs.target
ConditionPathExists={{.ConfigPath}}

[Service]
ExecStart="{{.ExecPath}}" watch --config "{{.ConfigPath}}"
Restart=on-failure
RestartSec=5

[Install]
WantedBy={{.WantedBy}}
`

var unit = template.Must(template.New("unit").Parse(unitTemplate))

func (s *Service) renderUnit(w io.Writer, execPath, configPath string) error {
	wantedBy := "multi-user.target"
	if s.scope == UserScope {
		wantedBy = "default.target"
	}

	return unit.Execute(w, map[string]string{
		"ExecPath":   execPath,
		"ConfigPath": configPath,
		"WantedBy":   wantedBy,
	})
}

func (s *Service) systemctl(args ...string) error {
	if s.scope == UserScope {
		args = append([]string{"--user"}, args...)
	}

	if out, err := s.run(args...); err != nil {
		return fmt.Errorf("failed to run systemctl %v: %w\n%s", args, err, out)
	}
	return nil
}

func (s *Service) writeUnit(execPath, configPath string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}

	f, err := os.Create(s.UnitPath())
	if err != nil {
		return fmt.Errorf("failed to create unit file: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := s.renderUnit(f, execPath, configPath); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	return nil
}

// Install writes the unit, then enables and starts it.
func (s *Service) Install(execPath, configPath string) error {
	if err := s.writeUnit(execPath, configPath); err != nil {
		return err
	}

	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", "--now", unitName},
	} {
		if err := s.systemctl(args...); err != nil {
			return err
		}
	}

	return nil
}

// Uninstall stops and disables the unit, then removes its file.
func (s *Service) Uninstall() error {
	installed, err := s.IsInstalled()
	if err != nil {
		return err
	}
	if !installed {
		return ErrNotInstalled
	}

	// a unit that never started fails to stop; removal goes ahead regardless
	_ = s.systemctl("disable", "--now", unitName)

	if err := os.Remove(s.UnitPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}

	return s.systemctl("daemon-reload")
}
