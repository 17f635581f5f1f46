//go:build linux

package autostart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Guliveer/hostmon/internal/host"
)

const (
	serviceName    = "hostmon"
	defaultUnitDir = "/etc/systemd/system"
)

// unitTemplate is the systemd unit written during installation.
// {exec} is replaced with the binary path and its arguments.
const unitTemplate = `[Unit]
Description=Hostmon compute host resource monitor
After=network-online.target libvirtd.service
Wants=network-online.target

[Service]
Type=simple
ExecStart={exec}
Restart=always
RestartSec=10
StandardOutput=journal
StandardError=journal
SyslogIdentifier=hostmon

NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=true
PrivateTmp=true

[Install]
WantedBy=multi-user.target
`

// linuxManager implements Manager using systemd.
type linuxManager struct {
	unitDir string
	runner  host.Runner
}

// New returns a Manager that writes units to /etc/systemd/system and drives
// systemctl through runner.
func New(runner host.Runner) Manager {
	return &linuxManager{unitDir: defaultUnitDir, runner: runner}
}

func (l *linuxManager) unitPath() string {
	return filepath.Join(l.unitDir, serviceName+".service")
}

// ServiceName returns the systemd service name.
func (l *linuxManager) ServiceName() string { return serviceName }

// IsInstalled checks whether the unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// Install writes the unit file, reloads systemd, then enables and starts the service.
func (l *linuxManager) Install(ctx context.Context, execPath, configPath string) error {
	exec := quoteArg(execPath) + " run"
	if configPath != "" {
		exec += " --config " + quoteArg(configPath)
	}
	unit := strings.ReplaceAll(unitTemplate, "{exec}", exec)
	if err := os.WriteFile(l.unitPath(), []byte(unit), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	commands := [][]string{
		{"daemon-reload"},
		{"enable", serviceName},
		{"start", serviceName},
	}
	for _, args := range commands {
		if _, stderr, err := l.runner.Execute(ctx, "systemctl", args...); err != nil {
			return fmt.Errorf("running systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr))
		}
	}
	return nil
}

// quoteArg renders s as one systemd ExecStart argument: double quoted with
// C-style escapes, and specifier and variable characters doubled.
func quoteArg(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "%", "%%", "$", "$$").Replace(s)
	return `"` + s + `"`
}

// Uninstall stops, disables and removes the service.
func (l *linuxManager) Uninstall(ctx context.Context) error {
	// The service may already be inactive.
	_, _, _ = l.runner.Execute(ctx, "systemctl", "stop", serviceName)
	_, _, _ = l.runner.Execute(ctx, "systemctl", "disable", serviceName)

	if err := os.Remove(l.unitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	_, _, _ = l.runner.Execute(ctx, "systemctl", "daemon-reload")
	return nil
}
