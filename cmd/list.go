package cmd

import (
	"fmt"
	"os"

	"github.com/cedana/cedana-spot/pkg/flags"
	"github.com/cedana/cedana-spot/types"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List spot instances launched from this host",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := setupManaged(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Close()

		all, _ := cmd.Flags().GetBool(flags.AllFlag.Full)

		var instances []types.SpotInstance
		if all {
			instances, err = m.db.GetAllInstances()
		} else {
			instances, err = m.db.GetActiveInstances()
		}
		if err != nil {
			return err
		}

		if len(instances) == 0 {
			fmt.Println("No instances to show")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Cedana ID", "Name", "Spot Request", "Instance", "Type", "State", "Public DNS"})
		table.SetAutoWrapText(false)
		table.SetBorder(false)

		for _, i := range instances {
			table.Append([]string{
				i.CedanaID,
				i.Name,
				i.SpotRequestID,
				i.AllocatedID,
				i.InstanceType,
				string(i.State),
				i.PublicDNSName,
			})
		}

		table.Render()

		fmt.Printf("\n%d instances found\n", len(instances))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP(flags.AllFlag.Full, flags.AllFlag.Short, false, "include destroyed instances")
}
