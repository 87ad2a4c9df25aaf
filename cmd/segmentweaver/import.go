package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grahms/segmentweaver/importer"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Convert a Markdown, HTML, text, PDF or DOCX file into segments",
	Long: `Converts a file into a JSON segment document. The source format comes
from the file extension, or from --format when reading stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		var (
			imp importer.Importer
			err error
		)
		switch {
		case format != "":
			imp, err = importer.ForFormat(format)
		case len(args) > 0 && args[0] != "-":
			imp, err = importer.ForFile(args[0])
		default:
			return fmt.Errorf("--format is required when reading stdin")
		}
		if err != nil {
			return err
		}

		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		segs, err := imp.Import(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if indent, _ := cmd.Flags().GetBool("indent"); indent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(segs)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("format", "", "Source format (markdown, html, text, pdf, docx, json)")
	importCmd.Flags().Bool("indent", true, "Indent the JSON output")
}
