package cmd

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/encodeous/lsr/core"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"
)

var (
	verifyTrials  int
	verifyNodes   int
	verifyDensity float64
	verifyWorkers int
	verifySeed    uint64
)

// verifyCmd cross-checks the shortest path computation against exhaustive search on random graphs
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Checks shortest path computation against brute force on random graphs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if verifyNodes > 10 {
			return fmt.Errorf("brute force is limited to 10 nodes, got %d", verifyNodes)
		}
		pool, err := ants.NewPool(verifyWorkers)
		if err != nil {
			return err
		}
		defer pool.Release()

		var (
			mu       sync.Mutex
			failures []error
			wg       sync.WaitGroup
		)
		for trial := range verifyTrials {
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				if err := verifyTrial(uint64(trial)); err != nil {
					mu.Lock()
					failures = append(failures, fmt.Errorf("trial %d: %w", trial, err))
					mu.Unlock()
				}
			})
			if err != nil {
				wg.Done()
				return err
			}
		}
		wg.Wait()

		for _, f := range failures {
			fmt.Println(f)
		}
		if len(failures) != 0 {
			return fmt.Errorf("%d of %d trials failed", len(failures), verifyTrials)
		}
		fmt.Printf("%d trials passed\n", verifyTrials)
		return nil
	},
	GroupID: "tools",
}

func verifyTrial(trial uint64) error {
	rng := rand.New(rand.NewPCG(verifySeed, trial))
	snap := core.NewSnapshot("r0", core.RandomAdvertisements(rng, verifyNodes, verifyDensity, 10)...)
	for _, opts := range []core.SpfOptions{{}, {Ecmp: true}, {Ecmp: true, MaxPaths: 2}} {
		for _, src := range snap.Ids() {
			if err := core.CheckSPF(snap, src, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().IntVar(&verifyTrials, "trials", 200, "Number of random graphs")
	verifyCmd.Flags().IntVar(&verifyNodes, "nodes", 7, "Routers per graph")
	verifyCmd.Flags().Float64Var(&verifyDensity, "density", 0.4, "Probability of a link between two routers")
	verifyCmd.Flags().IntVar(&verifyWorkers, "workers", 8, "Concurrent trials")
	verifyCmd.Flags().Uint64Var(&verifySeed, "seed", 1, "Random seed")
}
