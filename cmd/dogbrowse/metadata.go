package main

import (
	"dogs-api-go/metadata"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newMetadataCmd() *cobra.Command {
	var country string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Load the filter reference lists in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := metadata.NewLoader(svc)
			defer loader.Close()

			res := loader.Load(cmd.Context())
			meta := res.Metadata
			if country != "" {
				regions, err := loader.LoadRegions(cmd.Context(), country)
				meta.AvailableRegions = regions
				if err != nil && res.Err == nil {
					res.Err = err
				}
			}

			if flagJSON {
				if err := printJSON(os.Stdout, meta); err != nil {
					return err
				}
			} else {
				fmt.Printf("Breeds (%d): %s\n", len(meta.StandardizedBreeds), strings.Join(meta.StandardizedBreeds, ", "))
				fmt.Printf("Location countries (%d): %s\n", len(meta.LocationCountries), strings.Join(meta.LocationCountries, ", "))
				fmt.Printf("Adoptable to (%d): %s\n", len(meta.AvailableCountries), strings.Join(meta.AvailableCountries, ", "))
				fmt.Printf("Organizations: %d\n", len(meta.Organizations))
				if country != "" {
					fmt.Printf("Regions in %s (%d): %s\n", country, len(meta.AvailableRegions), strings.Join(meta.AvailableRegions, ", "))
				}
			}

			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "warning: some lists failed to load: %v\n", res.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "Also load the adoptable-to regions for this country")
	return cmd
}
