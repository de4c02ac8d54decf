package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"resistsim/internal/ode"
)

var (
	odeEpsilon  float64
	odePhi      float64
	odeMu       float64
	odeDuration float64
	odeDays     float64
	odeDt       float64
	odeInitial  float64
	odePrint    bool
)

var odeCmd = &cobra.Command{
	Use:   "ode",
	Short: "Run the deterministic two-strain compartmental model",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := ode.DefaultParams()
		params.Epsilon = odeEpsilon
		params.Phi = odePhi
		params.Mu = odeMu
		params.Duration = odeDuration

		// Seed the sensitive strain across groups proportionally to size.
		total := params.N[0] + params.N[1]
		i0 := odeInitial * params.N[0] / total
		i1 := odeInitial * params.N[1] / total
		y0 := []float64{
			params.N[0] - i0, params.N[1] - i1, // susceptible
			0, 0, // resistant
			i0, i1, // sensitive
		}

		series, err := ode.Run(params, y0, odeDays, odeDt)
		if err != nil {
			return err
		}

		if odePrint {
			fmt.Println("t\tinfected\tresistant")
			for i := range series.Times {
				fmt.Printf("%.2f\t%.4f\t%.4f\n",
					series.Times[i], series.Infected[i], series.Resistant[i])
			}
		}

		infected, resistant := roundSeries(series.Infected), roundSeries(series.Resistant)
		if _, err := saveSeries("ode", 0, infected, resistant); err != nil {
			return err
		}

		last := len(series.Infected) - 1
		fmt.Printf("t=%.1f: infected %.2f, resistant %.2f\n",
			series.Times[last], series.Infected[last], series.Resistant[last])
		return nil
	},
}

func roundSeries(xs []float64) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = int(math.Round(x))
	}
	return out
}

func init() {
	odeCmd.Flags().Float64Var(&odeEpsilon, "epsilon", 0.8, "mixing assortativity")
	odeCmd.Flags().Float64Var(&odePhi, "phi", 0.4, "treated fraction of infections")
	odeCmd.Flags().Float64Var(&odeMu, "mu", 0.0001, "resistant-conversion fraction of treatment")
	odeCmd.Flags().Float64Var(&odeDuration, "duration", 60, "mean infectious period in days")
	odeCmd.Flags().Float64Var(&odeDays, "days", 3650, "time span to integrate")
	odeCmd.Flags().Float64Var(&odeDt, "dt", 0.5, "integration step in days")
	odeCmd.Flags().Float64Var(&odeInitial, "initial", 10, "initial sensitive-strain infecteds")
	odeCmd.Flags().BoolVar(&odePrint, "print-series", false, "print the trajectory to stdout")
	rootCmd.AddCommand(odeCmd)
}
