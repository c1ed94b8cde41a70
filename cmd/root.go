package cmd

import (
	"os"

	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lsr",
	Short: "Link-state routing simulator",
	Long: `lsr simulates a network of link-state routers.
Every router keeps its own link-state database, computes shortest paths with Dijkstra, and installs the result in its forwarding table.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "sim",
		Title: "Simulation Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "tools",
		Title: "Tools",
	})
	rootCmd.PersistentFlags().StringVarP(&state.TopologyPath, "config", "c", state.TopologyPath, "topology and scenario config")
}
