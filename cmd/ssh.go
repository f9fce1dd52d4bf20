package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sshCommand = &cobra.Command{
	Use:   "ssh <cedana-id|instance-id>",
	Short: "Print the ssh command for a launched instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := setupManaged(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Close()

		// retrieve dns name from db
		inst, err := m.findInstance(args[0])
		if err != nil {
			return err
		}
		if inst.PublicDNSName == "" {
			return errors.New("instance has no public dns name yet")
		}

		fmt.Printf("`ssh -o \"IdentitiesOnly=yes\" -i %s %s@%s`\n",
			m.cfg.AWSConfig.SSHKeyPath,
			m.cfg.AWSConfig.User,
			inst.PublicDNSName,
		)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sshCommand)
}
