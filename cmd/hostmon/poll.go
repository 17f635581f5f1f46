package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Guliveer/hostmon/internal/scheduler"
)

func newPollCmd() *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll the enabled monitors once and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := initLogger(cfg)
			defer logger.Sync()

			st := buildStack(cfg, logger)
			defer st.Close(logger)

			hostname := ""
			if id, err := st.host.Identity(cmd.Context()); err == nil {
				hostname = id.Hostname
			}
			sched := scheduler.New(st.composite, scheduler.Config{
				Interval: cfg.Collection.Interval.Duration,
				Timeout:  cfg.Collection.Timeout.Duration,
				Hostname: hostname,
			}, logger)
			batch := sched.CollectOnce(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(batch)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "Print a single JSON line")
	return cmd
}
