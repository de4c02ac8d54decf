package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"resistsim/internal/sim"
)

var (
	runDays            int
	runSeed            int64
	runInitialInfected int
	runPrintSeries     bool
	runDumpState       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the stochastic agent-based model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("days") {
			cfg.Run.Days = runDays
		}
		if cmd.Flags().Changed("seed") {
			cfg.Run.Seed = runSeed
		}
		if cmd.Flags().Changed("initial-infected") {
			cfg.Run.InitialInfected = runInitialInfected
		}

		eng, err := sim.New(cfg, logger)
		if err != nil {
			return err
		}
		res, err := eng.Run(ctx)
		if err != nil {
			return err
		}

		if runPrintSeries {
			fmt.Println("day\tinfected\tresistant")
			for day := range res.Infected {
				fmt.Printf("%d\t%d\t%d\n", day+1, res.Infected[day], res.Resistant[day])
			}
		}
		if runDumpState {
			eng.Population().WriteState(os.Stdout)
		}

		if _, err := saveSeries("stochastic", cfg.Run.Seed, res.Infected, res.Resistant); err != nil {
			return err
		}

		last := len(res.Infected) - 1
		fmt.Printf("seed %d: %d days simulated, final infected %d, final resistant %d\n",
			cfg.Run.Seed, res.Days, res.Infected[last], res.Resistant[last])
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runDays, "days", 0, "override run.days")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "override run.seed")
	runCmd.Flags().IntVar(&runInitialInfected, "initial-infected", 0, "override run.initial_infected")
	runCmd.Flags().BoolVar(&runPrintSeries, "print-series", false, "print the per-day series to stdout")
	runCmd.Flags().BoolVar(&runDumpState, "dump-state", false, "dump full individual and partnership state after the run")
	rootCmd.AddCommand(runCmd)
}
