package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fyrsmithlabs/toolgate/internal/sanitize"
	"github.com/spf13/cobra"
)

// maxInput caps what the sanitize command will read.
const maxInput = 10 << 20

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize [file|-]",
		Short: "Sanitize a file or stdin",
		Long: `Apply the toolgate sanitizer to a file or stdin and print the result.

JSON input is sanitized as a tree: values under secret-looking keys are
masked and every string is cleaned. Any other input is sanitized as text.

Examples:
  toolgate sanitize response.json
  gh api repos/o/r/issues | toolgate sanitize -`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSanitize,
	}
}

func runSanitize(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	content, err := io.ReadAll(io.LimitReader(r, maxInput+1))
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if len(content) > maxInput {
		return fmt.Errorf("input exceeds %d bytes", maxInput)
	}

	out, err := sanitize.Document(content)
	if err != nil {
		return fmt.Errorf("failed to sanitize: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
