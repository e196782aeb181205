package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waxwing-dev/waxwing/pkg/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <config>",
	Short: "Validate a workflow configuration without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := workflow.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Println("Configuration is valid.")
		fmt.Printf("  Workflow: %s\n", cfg.Workflow.Name)
		if cfg.Workflow.Description != "" {
			fmt.Printf("  Description: %s\n", cfg.Workflow.Description)
		}
		fmt.Printf("  Watch paths: %d\n", len(cfg.Watch))
		fmt.Printf("  Rules: %d\n", len(cfg.Rules))
		for _, rule := range cfg.Rules {
			fmt.Printf("    - %s (%d actions, %d patterns)\n",
				rule.Name, len(rule.Actions), len(rule.Patterns))
		}
		if len(cfg.Plugins) > 0 {
			fmt.Printf("  Plugins: %d\n", len(cfg.Plugins))
			for _, pc := range cfg.Plugins {
				fmt.Printf("    - %s (%s)\n", pc.ResolvedID(), pc.Path)
			}
		}
		return nil
	},
}
