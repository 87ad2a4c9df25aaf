package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	sw "github.com/grahms/segmentweaver"
)

// readInput reads the file named by the first argument, or stdin when there
// is none or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func addPolicyFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("strict", false, "Fail on unknown or malformed content instead of skipping it")
	cmd.Flags().Bool("render-unknown", false, "Let fallback serializers render unknown types instead of dropping them")
	cmd.Flags().Bool("hard-breaks", false, "Turn newlines in text into line breaks")
	cmd.Flags().Bool("plain", false, "Skip all dispatch and emit text content only")
	cmd.Flags().Int("max-depth", 0, "Maximum nesting depth (0 keeps the configured value)")
}

// policyFromFlags starts from the configured policy and applies the flags
// the user set explicitly.
func policyFromFlags(cmd *cobra.Command) sw.Policy {
	p := cfg.Render.Policy()
	flags := cmd.Flags()
	if flags.Changed("strict") {
		p.ErrorOnUnknowns, _ = flags.GetBool("strict")
	}
	if flags.Changed("render-unknown") {
		p.RenderUnknownComponents, _ = flags.GetBool("render-unknown")
	}
	if flags.Changed("hard-breaks") {
		p.RenderHardBreaks, _ = flags.GetBool("hard-breaks")
	}
	if flags.Changed("plain") {
		p.RenderPlainText, _ = flags.GetBool("plain")
	}
	if n, _ := flags.GetInt("max-depth"); n > 0 {
		p.MaxDepth = n
	}
	return p
}
