package cmd

import (
	"fmt"

	aws_helpers "github.com/cedana/cedana-spot/aws"
	"github.com/spf13/cobra"
)

// Parent wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Poll until a spot request or instance gets assigned a field",
	Long: `Poll EC2 at a fixed interval (polling.interval_seconds) for up to polling.max_retries attempts.
Exits with an error if nothing is assigned in time.`,
}

var waitInstanceCmd = &cobra.Command{
	Use:   "instance <spot-request-id>",
	Short: "Wait for a spot request to be assigned an instance id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setupEnv(ctx)
		if err != nil {
			return err
		}

		id, err := e.poller().WaitForSpotInstance(ctx, e.client, args[0])
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("spot request %s: %w", args[0], aws_helpers.ErrWaitTimeout)
		}

		fmt.Println(id)
		return nil
	},
}

var waitDNSCmd = &cobra.Command{
	Use:   "dns <instance-id>",
	Short: "Wait for an instance to be assigned a public dns name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setupEnv(ctx)
		if err != nil {
			return err
		}

		dns, err := e.poller().GetPublicDNSName(ctx, e.client, args[0])
		if err != nil {
			return err
		}
		if dns == "" {
			return fmt.Errorf("instance %s: %w", args[0], aws_helpers.ErrWaitTimeout)
		}

		fmt.Println(dns)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.AddCommand(waitInstanceCmd)
	waitCmd.AddCommand(waitDNSCmd)
}
