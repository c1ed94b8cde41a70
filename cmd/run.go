package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/encodeous/lsr/core"
	"github.com/encodeous/lsr/sim"
	"github.com/encodeous/lsr/state"
	"github.com/spf13/cobra"
)

var (
	logPath    string
	printTrace bool
	realtime   bool
	until      time.Duration
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	Long: `Runs the network and scripted events of the config, then prints the forwarding table of every router.
By default the scenario runs on a virtual clock and finishes instantly, use --realtime to run it on the wall clock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadTopology(state.TopologyPath)
		if err != nil {
			return err
		}
		if until != 0 {
			cfg.Duration = until
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}
		log, err := core.NewLogger("lsr", level, logPath)
		if err != nil {
			return err
		}

		trace := &core.Trace{}
		err = trace.Init(nil)
		if err != nil {
			return err
		}
		defer trace.Cleanup(nil)
		if printTrace {
			stop := startTracePrinter(trace)
			defer stop()
		}

		if realtime {
			return runRealtime(cfg, log, trace)
		}
		s, err := sim.NewScenario(cfg, log, sim.WithTrace(trace))
		if err != nil {
			return err
		}
		if err := s.Run(cfg.Duration); err != nil {
			return err
		}
		if err := s.Verify(); err != nil {
			log.Warn("network has not converged", "error", err)
		}
		return sim.WriteTables(os.Stdout, s.Network)
	},
	GroupID: "sim",
}

// runRealtime drives the network from the main loop and the wall clock
func runRealtime(cfg *state.TopologyCfg, log *slog.Logger, trace *core.Trace) error {
	env := state.NewEnv(context.Background(), *cfg, log)
	s := &state.State{
		Env:     env,
		Modules: make(map[string]state.NyModule),
	}
	n, err := sim.NewNetwork(cfg, env, log, sim.WithTrace(trace))
	if err != nil {
		return err
	}
	s.ScheduleTask(func(s *state.State) error {
		err := sim.WriteTables(os.Stdout, core.Get[*sim.Network](s))
		if err != nil {
			return err
		}
		s.Cancel(errors.New("reached end of run"))
		return nil
	}, cfg.Duration)
	return core.Run(s, 0, n)
}

func startTracePrinter(trace *core.Trace) func() {
	ch := make(chan any, 1024)
	trace.Register(ch)
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range ch {
			fmt.Println(ev)
		}
	}()
	return func() {
		trace.Unregister(ch)
		close(ch)
		wg.Wait()
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringVar(&logPath, "log", "", "Also write logs to this file")
	runCmd.Flags().BoolVarP(&printTrace, "trace", "t", false, "Print every route change")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "Run on the wall clock instead of the virtual clock")
	runCmd.Flags().DurationVarP(&until, "until", "u", 0, "Override the duration of the scenario")
}
