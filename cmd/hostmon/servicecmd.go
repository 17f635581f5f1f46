package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Guliveer/hostmon/internal/autostart"
	"github.com/Guliveer/hostmon/internal/config"
	"github.com/Guliveer/hostmon/internal/host"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Install or remove hostmon as a boot-time service",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install and start the systemd unit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("locating executable: %w", err)
				}
				cfgPath := configPath
				if cfgPath == "" {
					cfgPath = config.Locate()
				}
				if cfgPath != "" {
					if cfgPath, err = filepath.Abs(cfgPath); err != nil {
						return err
					}
				}
				m := autostart.New(host.NewExecRunner(cfg.Host.CommandTimeout.Duration, nil))
				if err := m.Install(cmd.Context(), exe, cfgPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Installed %s\n", m.ServiceName())
				return nil
			},
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Stop and remove the systemd unit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m := autostart.New(host.NewExecRunner(0, nil))
				if ok, err := m.IsInstalled(); err != nil {
					return err
				} else if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is not installed\n", m.ServiceName())
					return nil
				}
				if err := m.Uninstall(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", m.ServiceName())
				return nil
			},
		},
	)
	return cmd
}
