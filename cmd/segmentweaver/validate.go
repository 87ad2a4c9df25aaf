package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/internal/render"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a segment document for problems",
	Long: `Walks the whole document and reports every unknown type, unresolved
modifier reference, malformed node and invalid modifier definition.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		selectPath, _ := cmd.Flags().GetString("select")
		allowUnknown, _ := cmd.Flags().GetBool("allow-unknown")

		err = render.NewService(nil, logger).Validate(data, selectPath, sw.ValidateOptions{
			AllowUnknown: allowUnknown,
			MaxDepth:     cfg.Render.MaxDepth,
		})
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "document is valid")
			return nil
		}
		problems := sw.Problems(err)
		for _, p := range problems {
			fmt.Fprintln(cmd.OutOrStdout(), "-", p)
		}
		return fmt.Errorf("validation failed: %d problem(s)", len(problems))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("select", "s", "", "JSONPath selecting the segments to validate")
	validateCmd.Flags().Bool("allow-unknown", false, "Accept segment and modifier types outside the vocabulary")
}
