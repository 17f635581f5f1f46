// Package autostart installs hostmon as a boot-time service.
package autostart

import "context"

// Manager provides platform-specific autostart installation.
type Manager interface {
	IsInstalled() (bool, error)
	Install(ctx context.Context, execPath, configPath string) error
	Uninstall(ctx context.Context) error
	ServiceName() string
}
