package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	sw "github.com/grahms/segmentweaver"
	"github.com/grahms/segmentweaver/internal/render"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Show how each segment's modifiers resolve",
	Long: `Prints the segment tree with the modifiers every node resolves to.
Unresolved references are marked with "?". With --dump the resolved
modifiers are printed in full, definition fields included.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		selectPath, _ := cmd.Flags().GetString("select")
		dump, _ := cmd.Flags().GetBool("dump")

		segs, err := render.Decode(data, selectPath)
		if err != nil {
			return err
		}
		for i := range segs {
			writeResolved(cmd.OutOrStdout(), &segs[i], dump)
		}
		return nil
	},
}

func writeResolved(w io.Writer, root *sw.Segment, dump bool) {
	root.Walk(func(seg *sw.Segment, depth int) bool {
		indent := strings.Repeat("  ", depth)
		label := seg.Type
		if seg.ID != "" {
			label += "#" + seg.ID
		}
		if seg.HasText() {
			label += fmt.Sprintf(" %q", seg.Text())
		}

		mods, _ := sw.ResolveSegment(seg, sw.ResolveOptions{KeepUnresolved: true})
		names := make([]string, 0, len(mods))
		for _, m := range mods {
			switch {
			case m.Unresolved:
				names = append(names, m.Ref+"?")
			case m.IsBare():
				names = append(names, m.Type)
			default:
				names = append(names, m.Type+"("+m.ID+")")
			}
		}
		if len(names) > 0 {
			label += " [" + strings.Join(names, " ") + "]"
		}
		fmt.Fprintln(w, indent+label)

		if dump && len(mods) > 0 {
			dumper := spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}
			for _, line := range strings.Split(strings.TrimRight(dumper.Sdump(mods), "\n"), "\n") {
				fmt.Fprintln(w, indent+"  "+line)
			}
		}
		return true
	})
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringP("select", "s", "", "JSONPath selecting the segments to show")
	resolveCmd.Flags().Bool("dump", false, "Print the resolved modifiers in full")
}
