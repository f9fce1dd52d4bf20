package cmd

import (
	"fmt"

	"github.com/cedana/cedana-spot/pkg/flags"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch launched instances for spot interruption notices",
	Long: `Periodically check the spot request status of every assigned or running instance in the ledger.
Instances the provider is about to reclaim are marked in the ledger and a marked_for_termination event is published.
Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := setupManaged(ctx)
		if err != nil {
			return err
		}
		defer m.Close()

		schedule := stringFlagOr(cmd, flags.ScheduleFlag.Full, m.cfg.Watch.Schedule)

		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		_, err = c.AddFunc(schedule, func() {
			marked, err := m.spot.CheckAll(ctx, m.db)
			if err != nil {
				m.logger.Error().Err(err).Msg("interruption check incomplete")
			}
			if marked > 0 {
				m.logger.Warn().Int("marked", marked).Msg("instances marked for interruption")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}

		m.logger.Info().Str("schedule", schedule).Msg("watching spot instances for interruptions...")
		c.Start()

		<-ctx.Done()
		m.logger.Info().Msg("stopping watch...")
		<-c.Stop().Done()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String(flags.ScheduleFlag.Full, "", "cron schedule for checks, e.g. \"@every 30s\" (default watch.schedule)")
}
