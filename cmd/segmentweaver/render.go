package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grahms/segmentweaver/internal/render"
	"github.com/grahms/segmentweaver/mdrender"
)

const (
	formatAuto   = "auto"
	formatPretty = "pretty"
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a segment document",
	Long: `Renders a JSON segment document read from a file or stdin.

Formats:
- auto (default): ansi on a terminal, html otherwise
- html, markdown, ansi, text
- pretty: markdown styled for the terminal`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		selectPath, _ := cmd.Flags().GetString("select")

		tty, width := terminal(cmd)
		format = strings.ToLower(format)
		if format == formatAuto {
			format = render.FormatHTML
			if tty {
				format = render.FormatANSI
			}
		}
		pretty := format == formatPretty
		if pretty {
			format = render.FormatMarkdown
		}

		res, err := render.NewService(nil, logger).Render(cmd.Context(), render.Request{
			Format:   format,
			Document: data,
			Select:   selectPath,
			Policy:   policyFromFlags(cmd),
		})
		if err != nil {
			return err
		}
		for _, d := range res.Degraded {
			logger.Warn("skipped content", "reason", d)
		}

		out := res.Output
		if pretty {
			style, _ := cmd.Flags().GetString("style")
			if !tty && style == "" {
				style = "notty"
			}
			if w, _ := cmd.Flags().GetInt("width"); w > 0 {
				width = w
			}
			if out, err = mdrender.Pretty(out, style, width); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
		return nil
	},
}

// terminal reports whether the command writes to a terminal, and its width.
func terminal(cmd *cobra.Command) (bool, int) {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return true, 0
	}
	return true, w
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("format", "f", formatAuto, "Output format (auto, html, markdown, ansi, text, pretty)")
	renderCmd.Flags().StringP("select", "s", "", "JSONPath selecting the segments to render")
	renderCmd.Flags().String("style", "", "glamour style for pretty output (dark, light, notty, ...)")
	renderCmd.Flags().Int("width", 0, "Word wrap width for pretty output")
	addPolicyFlags(renderCmd)
}
