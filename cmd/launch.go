package cmd

import (
	"fmt"
	"strings"

	aws_helpers "github.com/cedana/cedana-spot/aws"
	"github.com/cedana/cedana-spot/pkg/flags"
	"github.com/cedana/cedana-spot/ssh"
	"github.com/spf13/cobra"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Request a spot instance and wait until it is running",
	Long: `Request a spot instance, wait for an instance id and a public dns name, and record it in the local ledger.
If the instance doesn't come up in time the spot request is cancelled and any assigned instance terminated.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := setupManaged(ctx)
		if err != nil {
			return err
		}
		defer m.Close()

		spec, err := launchSpec(cmd, m.cfg)
		if err != nil {
			return err
		}

		userData := stringFlagOr(cmd, flags.UserDataFlag.Full, m.cfg.AWSConfig.UserData)
		var s3 aws_helpers.S3GetObjectAPI
		if strings.HasPrefix(userData, "s3://") {
			s3, err = aws_helpers.MakeS3Client(ctx, m.cfg.AWSConfig)
			if err != nil {
				return fmt.Errorf("could not create s3 client: %w", err)
			}
		}
		spec.UserData, err = aws_helpers.LoadUserData(ctx, s3, userData)
		if err != nil {
			return err
		}

		i, err := m.spot.Launch(ctx, spec)
		if err != nil {
			if i != nil {
				m.logger.Error().Str("cedana_id", i.CedanaID).Msg("launch failed, instance marked as failed in the ledger")
			}
			return err
		}

		waitSSH, _ := cmd.Flags().GetBool(flags.WaitSSHFlag.Full)
		if waitSSH {
			c, err := ssh.NewClient(m.cfg.AWSConfig.User, i.PublicDNSName, m.cfg.AWSConfig.SSHKeyPath)
			if err != nil {
				return err
			}
			m.logger.Info().Str("public_dns_name", i.PublicDNSName).Msg("waiting for ssh...")
			if err := ssh.WaitForReachable(ctx, c, m.logger); err != nil {
				return fmt.Errorf("instance %s is running but not reachable over ssh: %w", i.CedanaID, err)
			}
		}

		fmt.Printf("%s\t%s\t%s\n", i.CedanaID, i.AllocatedID, i.PublicDNSName)
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy <cedana-id|instance-id|spot-request-id>",
	Short: "Terminate a launched instance and cancel its spot request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := setupManaged(ctx)
		if err != nil {
			return err
		}
		defer m.Close()

		i, err := m.findInstance(args[0])
		if err != nil {
			return err
		}

		return m.spot.Destroy(ctx, i)
	},
}

func init() {
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(destroyCmd)

	addLaunchSpecFlags(launchCmd)
	launchCmd.Flags().String(flags.UserDataFlag.Full, "", "user data script, local path or s3://bucket/key (default aws.user_data)")
	launchCmd.Flags().Bool(flags.WaitSSHFlag.Full, false, "also wait until the instance accepts ssh connections")
}
