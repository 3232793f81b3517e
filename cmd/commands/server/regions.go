package server

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"outpostlabs/outpost/internal/auth"
	"outpostlabs/outpost/internal/providers"

	"github.com/spf13/cobra"
)

func RegionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List regions available for new servers",
		Long:  `List the provider's deployment regions, grouped by geographic area.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			providerName := cmd.Flag("provider").Value.String()

			account, err := providers.Get(providerName, auth.DefaultStore())
			if err != nil {
				return err
			}

			regions, err := account.RegionMap(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch regions: %w", err)
			}

			areas := make([]string, 0, len(regions))
			for area := range regions {
				areas = append(areas, area)
			}
			sort.Strings(areas)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			for _, area := range areas {
				fmt.Fprintf(w, "%s\t\t\n", area)
				for _, region := range regions[area] {
					location := region.City
					if region.Country != "" {
						location += ", " + region.Country
					}
					fmt.Fprintf(w, "  %s\t%s\t%s\n", region.ID, region.Name, location)
				}
			}
			return w.Flush()
		},
		SilenceUsage: true,
	}

	return cmd
}
