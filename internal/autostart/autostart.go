package autostart

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const unitName = "copier.service"

var (
	ErrUnsupported  = errors.New("autostart requires systemd on linux")
	ErrNotInstalled = errors.New("copier service is not installed")
)

// Scope selects between a per-user unit and a system-wide one.
type Scope int

const (
	UserScope Scope = iota
	SystemScope
)

// Service installs copier as a systemd unit that starts the watcher on boot.
type Service struct {
	scope Scope
	dir   string
	run   func(args ...string) ([]byte, error)
}

func New(scope Scope) (*Service, error) {
	if runtime.GOOS != "linux" {
		return nil, ErrUnsupported
	}

	dir := "/etc/systemd/system"
	if scope == UserScope {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".config", "systemd", "user")
	}

	return &Service{scope: scope, dir: dir, run: systemctl}, nil
}

func systemctl(args ...string) ([]byte, error) {
	return exec.Command("systemctl", args...).CombinedOutput()
}

// UnitPath is where the unit file is written.
func (s *Service) UnitPath() string {
	return filepath.Join(s.dir, unitName)
}

func (s *Service) IsInstalled() (bool, error) {
	_, err := os.Stat(s.UnitPath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
