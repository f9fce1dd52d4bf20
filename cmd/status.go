package cmd

import (
	"fmt"
	"os"
	"time"

	aws_helpers "github.com/cedana/cedana-spot/aws"
	"github.com/cedana/cedana-spot/market/pricing"
	"github.com/cedana/cedana-spot/pkg/flags"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <spot-request-id>",
	Short: "Show the provider status of a spot request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setupEnv(ctx)
		if err != nil {
			return err
		}

		pe, err := aws_helpers.GetSpotRequestStatus(ctx, e.client, args[0])
		if err != nil {
			return err
		}
		if pe == nil {
			return fmt.Errorf("spot request %s not found", args[0])
		}

		tableWriter := table.NewWriter()
		tableWriter.SetStyle(table.StyleLight)
		tableWriter.SetOutputMirror(os.Stdout)

		tableWriter.AppendRows([]table.Row{
			{"Spot Request", pe.SpotRequestID},
			{"Instance", pe.InstanceID},
			{"State", pe.State},
			{"Status", pe.FaultCode},
			{"Message", pe.Message},
		})
		if pe.MarkedForTermination {
			tableWriter.AppendRow(table.Row{"Interruption", time.Unix(pe.TerminationTime, 0).Format(time.RFC3339)})
		}

		tableWriter.Render()
		return nil
	},
}

var priceCmd = &cobra.Command{
	Use:   "price <instance-type>",
	Short: "Show the current spot price of an instance type per availability zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := setupEnv(ctx)
		if err != nil {
			return err
		}

		az, _ := cmd.Flags().GetString(flags.AZFlag.Full)

		apm := pricing.NewAWSPricingModel(e.client, e.logger)
		prices, err := apm.GetSpotPrice(ctx, args[0], az)
		if err != nil {
			return err
		}

		if len(prices) == 0 {
			fmt.Printf("No spot prices found for %s in %s\n", args[0], e.cfg.AWSConfig.Region)
			return nil
		}

		tableWriter := table.NewWriter()
		tableWriter.SetStyle(table.StyleLight)
		tableWriter.SetOutputMirror(os.Stdout)
		tableWriter.Style().Options.SeparateRows = false

		tableWriter.AppendHeader(table.Row{
			"Availability Zone",
			"Instance Type",
			"Price (USD/h)",
			"Since",
		})

		for _, p := range prices {
			tableWriter.AppendRow(table.Row{
				p.AvailabilityZone,
				p.InstanceType,
				fmt.Sprintf("%.4f", p.Price),
				p.Timestamp.Format(time.RFC3339),
			})
		}

		tableWriter.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(priceCmd)

	priceCmd.Flags().String(flags.AZFlag.Full, "", "only show this availability zone")
}
