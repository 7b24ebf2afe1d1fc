package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
	"github.com/pb40development/ifc-normalizer/pkg/ifc"
)

var validateCmd = &cobra.Command{
	Use:   "validate <input.ifc>",
	Short: "Check that a file is a readable STEP/IFC document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.WrapIO("read", args[0], err)
		}

		summary := ifc.Validate(data)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File:     %s\n", args[0])
		fmt.Fprintf(out, "Size:     %d bytes\n", summary.SizeBytes)
		fmt.Fprintf(out, "Schema:   %s\n", summary.Schema)
		fmt.Fprintf(out, "Entities: %d\n", summary.EntityCount)

		if !summary.HasHeader || !summary.HasFileSchema {
			return errors.NewValidationError("file", args[0], "not a valid STEP/IFC document")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
