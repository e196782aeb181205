package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/workflow"
)

var initCmd = &cobra.Command{
	Use:   "init [output]",
	Short: "Generate an example workflow configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := "workflow.json"
		if len(args) == 1 {
			output = args[0]
		}
		if _, err := os.Stat(output); err == nil {
			return errx.With(ErrFileExists, ": %s", output)
		}

		raw, err := json.MarshalIndent(workflow.Example(), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, append(raw, '\n'), 0o644); err != nil {
			return errx.Wrap(ErrWriteConfig, err)
		}

		fmt.Printf("Created example workflow configuration: %s\n", output)
		fmt.Printf("Edit the file to customise your workflow, then run with:\n")
		fmt.Printf("  waxwing run %s\n", output)
		return nil
	},
}
