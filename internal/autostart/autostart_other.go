//go:build !linux

package autostart

import (
	"context"
	"fmt"
	"runtime"

	"github.com/Guliveer/hostmon/internal/host"
)

type unsupported struct{}

// New returns a Manager whose operations fail: hostmon only installs
// itself under systemd.
func New(host.Runner) Manager { return unsupported{} }

func (unsupported) ServiceName() string { return "hostmon" }

func (unsupported) IsInstalled() (bool, error) { return false, nil }

func (unsupported) Install(context.Context, string, string) error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}

func (unsupported) Uninstall(context.Context) error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}
