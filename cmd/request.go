package cmd

import (
	"errors"
	"fmt"

	aws_helpers "github.com/cedana/cedana-spot/aws"
	"github.com/spf13/cobra"
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Place a one-instance spot request",
	Long:  `Place a one-instance spot request and print its id. Flags override the aws section of the config.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setupEnv(ctx)
		if err != nil {
			return err
		}

		spec, err := launchSpec(cmd, e.cfg)
		if err != nil {
			return err
		}

		id, err := aws_helpers.RequestSpotInstance(ctx, e.client, spec)
		if err != nil {
			return err
		}
		if id == "" {
			return errors.New("provider returned no spot instance request")
		}

		e.logger.Info().Str("spot_request_id", id).Str("instance_type", spec.InstanceType).Msg("spot instance requested")
		fmt.Println(id)
		return nil
	},
}

var terminateCmd = &cobra.Command{
	Use:   "terminate <instance-id>",
	Short: "Terminate an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setupEnv(ctx)
		if err != nil {
			return err
		}

		if err := aws_helpers.TerminateInstance(ctx, e.client, args[0]); err != nil {
			return err
		}
		e.logger.Info().Str("instance_id", args[0]).Msg("instance terminated")
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <spot-request-id>",
	Short: "Cancel a spot request",
	Long:  `Cancel a spot request. Instances already launched for it keep running, use terminate for those.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setupEnv(ctx)
		if err != nil {
			return err
		}

		if err := aws_helpers.CancelSpotInstanceRequest(ctx, e.client, args[0]); err != nil {
			return err
		}
		e.logger.Info().Str("spot_request_id", args[0]).Msg("spot request cancelled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(terminateCmd)
	rootCmd.AddCommand(cancelCmd)

	addLaunchSpecFlags(requestCmd)
}
