package server

import (
	"fmt"
	"text/tabwriter"

	"outpostlabs/outpost/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all proxy servers",
		Long:  `List all proxy servers provisioned through the signed-in account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openResumed(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			items := sess.Registry.List()
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No servers found.")
				return nil
			}

			// Create a tabwriter for pretty output
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tHOSTNAME\tREGION\tCOST/MO\tTRANSFER\tSTATE")
			fmt.Fprintln(w, "--\t----\t--------\t------\t-------\t--------\t-----")

			for _, item := range items {
				// Background health checks may still be resolving names, so
				// the record is copied under the registry lock.
				var (
					name, hostname string
					installed      bool
					host           domain.Host
				)
				ok := sess.Registry.ReadServer(item.ID, func(srv *domain.Server) {
					name = srv.Name
					hostname = srv.Hostname
					installed = srv.InstallCompleted
					if srv.IsManaged() {
						host = srv.Host
					}
				})
				if !ok {
					continue
				}

				region, cost, transfer := "-", "-", "-"
				if host != nil {
					region = host.RegionID()
					cost = fmt.Sprintf("$%.2f", host.MonthlyCostUSD())
					transfer = humanize.Bytes(uint64(host.MonthlyTransferBytes()))
				}

				state := "ready"
				if !installed {
					state = "installing"
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					item.ID, name, hostname, region, cost, transfer, state)
			}

			return w.Flush()
		},
		SilenceUsage: true,
	}

	return cmd
}
