package main

import (
	"dogs-api-go/filters"
	"dogs-api-go/services/catalog"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	values := make(map[filters.Field]*string, filters.FieldCount)
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of dogs matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := filters.DefaultState()
			for f, v := range values {
				if *v != "" {
					state = state.With(f, *v)
				}
			}

			dogs, err := svc.Animals(cmd.Context(), catalog.AnimalQuery{
				Params: state.APIParams(),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return fmt.Errorf("list dogs: %w", err)
			}

			if flagJSON {
				return printJSON(os.Stdout, dogs)
			}
			printDogs(os.Stdout, dogs)
			if len(dogs) == limit {
				fmt.Printf("\n(more available, use --offset %d)\n", offset+limit)
			}
			return nil
		},
	}

	for _, f := range filters.Fields() {
		values[f] = new(string)
		cmd.Flags().StringVar(values[f], f.Short(), "", fmt.Sprintf("Filter on %s (default %q)", f.APIParam(), f.Sentinel()))
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of dogs to skip")

	return cmd
}

func printDogs(w io.Writer, dogs []catalog.Animal) {
	if len(dogs) == 0 {
		fmt.Fprintln(w, "No dogs found.")
		return
	}

	fmt.Fprintf(w, "%-24s  %-28s  %-8s  %-12s  %s\n", "NAME", "BREED", "SEX", "SIZE", "ORGANIZATION")
	fmt.Fprintf(w, "%-24s  %-28s  %-8s  %-12s  %s\n", "----", "-----", "---", "----", "------------")
	for _, d := range dogs {
		org := ""
		if d.Organization != nil {
			org = d.Organization.Name
		}
		fmt.Fprintf(w, "%-24s  %-28s  %-8s  %-12s  %s\n", d.Name, d.StandardizedBreed, d.Sex, d.StandardizedSize, org)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
