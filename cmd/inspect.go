package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/encodeous/lsr/core"
	"github.com/encodeous/lsr/sim"
	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

var (
	inspectRouter  string
	inspectSummary bool
	inspectUntil   time.Duration
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Inspects a router at the end of a scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadTopology(state.TopologyPath)
		if err != nil {
			return err
		}
		if inspectUntil != 0 {
			cfg.Duration = inspectUntil
		}
		log, err := core.NewLogger("lsr", slog.LevelWarn, "")
		if err != nil {
			return err
		}
		s, err := sim.NewScenario(cfg, log)
		if err != nil {
			return err
		}
		if err := s.Run(cfg.Duration); err != nil {
			return err
		}
		node, ok := s.Node(state.NodeId(inspectRouter))
		if !ok {
			return fmt.Errorf("unknown router %q", inspectRouter)
		}

		if err := sim.WriteTables(os.Stdout, s.Network, node.GetId()); err != nil {
			return err
		}
		if r, ok := node.Router(); ok {
			fmt.Printf("database (version %d, %d computations)\n", r.Database().Version(), r.Computations())
			for _, adv := range r.Database().Advertisements() {
				fmt.Printf("  %s\n", adv)
			}
		}
		expected := core.ComputeSPF(s.GroundTruth(node.GetId()), node.GetId(), core.OptionsFromConfig(cfg.Protocol))
		fmt.Printf("shortest paths over the current topology\n%s\n", expected)
		if inspectSummary {
			fmt.Println("summary")
			return sim.WriteSummary(os.Stdout, node)
		}
		return nil
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectRouter, "node", "n", "", "Router to inspect")
	inspectCmd.Flags().BoolVarP(&inspectSummary, "summary", "s", false, "Print aggregated prefixes per next hop")
	inspectCmd.Flags().DurationVarP(&inspectUntil, "until", "u", 0, "Override the duration of the scenario")
	_ = inspectCmd.MarkFlagRequired("node")
}
