package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pb40development/ifc-normalizer/internal/config"
	"github.com/pb40development/ifc-normalizer/internal/portal"
)

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Inspect the BIM-Portal property catalog",
}

var portalSearchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Search canonical property definitions by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := portalClient()
		hits, err := client.SearchProperties(cmd.Context(), portal.SearchQuery{SearchString: args[0]})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(hits) == 0 {
			fmt.Fprintln(out, "No matches.")
			return nil
		}
		for _, hit := range hits {
			fmt.Fprintf(out, "%s  %s\n", hit.GUID, hit.Name)
		}
		return nil
	},
}

var portalPropertyCmd = &cobra.Command{
	Use:   "property <guid>",
	Short: "Fetch one property definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := portalClient().PropertyByGUID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "GUID:     %s\n", def.GUID)
		fmt.Fprintf(out, "Name:     %s\n", def.Name)
		fmt.Fprintf(out, "Version:  %s\n", def.VersionString())
		fmt.Fprintf(out, "DataType: %s\n", def.DataType)
		if units := def.UnitsString(); units != "" {
			fmt.Fprintf(out, "Units:    %s\n", units)
		}
		return nil
	},
}

var portalGroupsCmd = &cobra.Command{
	Use:   "groups [search]",
	Short: "List property groups, optionally filtered",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		search := ""
		if len(args) == 1 {
			search = args[0]
		}
		groups, err := portalClient().SearchPropertyGroups(cmd.Context(), search)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, group := range groups {
			fmt.Fprintf(out, "%s  %s\n", group.GUID, group.Name)
		}
		return nil
	},
}

var portalGroupCmd = &cobra.Command{
	Use:   "group <guid>",
	Short: "Fetch one property group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, err := portalClient().PropertyGroupByGUID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", group.GUID, group.Name)
		return nil
	},
}

var portalOrgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "List publishing organisations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		orgs, err := portalClient().ListOrganisations(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, org := range orgs {
			fmt.Fprintf(out, "%s  %s\n", org.GUID, org.Name)
		}
		return nil
	},
}

func portalClient() *portal.Client {
	cfg := config.Load()
	return portal.New(
		portal.WithBaseURL(cfg.Portal.URL),
		portal.WithToken(cfg.Portal.Token),
		portal.WithRetries(cfg.Portal.Retries),
	)
}

func init() {
	portalCmd.AddCommand(portalSearchCmd, portalPropertyCmd, portalGroupsCmd, portalGroupCmd, portalOrgsCmd)
	rootCmd.AddCommand(portalCmd)
}
