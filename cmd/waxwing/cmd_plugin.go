package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/plugin"
	"github.com/waxwing-dev/waxwing/pkg/workflow"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Inspect and discover sandboxed plugins",
}

var pluginListCmd = &cobra.Command{
	Use:   "list <config>",
	Short: "Load the plugins of a workflow and list their actions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := workflow.Load(args[0])
		if err != nil {
			return err
		}

		registry := plugin.NewRegistry(nil)
		defer registry.Close()
		for _, pc := range cfg.Plugins {
			if _, err := registry.Load(pc); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", pc.Path, err)
			}
		}
		registry.Discover(cfg.PluginPaths)

		return printPlugins(registry)
	},
}

var pluginDiscoverCmd = &cobra.Command{
	Use:   "discover <dir> [dir...]",
	Short: "Scan directories for loadable *.wasm plugins",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := plugin.NewRegistry(nil)
		defer registry.Close()

		loaded := registry.Discover(args)
		if len(loaded) == 0 {
			fmt.Println("No plugins found.")
			return nil
		}
		return printPlugins(registry)
	},
}

var pluginInspectCmd = &cobra.Command{
	Use:   "inspect <plugin.wasm>",
	Short: "Load one plugin and print its actions and baseline grants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := plugin.NewRegistry(nil)
		defer registry.Close()

		id, err := registry.LoadFromPath(args[0])
		if err != nil {
			return err
		}
		inst, ok := registry.Get(id)
		if !ok {
			return errx.With(plugin.ErrNotFound, ": %s", id)
		}

		meta := inst.Metadata()
		fmt.Printf("ID:          %s\n", meta.ID)
		fmt.Printf("API version: %s\n", meta.APIVersion)
		fmt.Printf("Actions:     %v\n", inst.Actions())
		fmt.Printf("Permissions: %s\n", meta.RequiredPermissions.Describe())
		return nil
	},
}

func printPlugins(registry *plugin.Registry) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACTIONS\tPERMISSIONS")
	for _, id := range registry.IDs() {
		inst, ok := registry.Get(id)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%v\t%s\n", id, inst.Actions(), inst.Metadata().RequiredPermissions.Describe())
	}
	return w.Flush()
}

func init() {
	pluginCmd.AddCommand(pluginListCmd)
	pluginCmd.AddCommand(pluginDiscoverCmd)
	pluginCmd.AddCommand(pluginInspectCmd)
}
