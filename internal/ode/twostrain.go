// Package ode implements the deterministic two-strain, two-group
// compartmental companion model: susceptibles and sensitive/resistant
// infecteds in a high- and a low-activity group, coupled through an
// assortative sexual mixing matrix. The system is a plain set of
// differential equations integrated with a fixed-step Runge-Kutta scheme.
package ode

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Number of activity groups and of compartments per group.
const (
	numGroups       = 2
	numCompartments = 3 // S, I-resistant, I-sensitive
)

// StateSize is the length of the packed state vector:
// [S_0, S_1, Ires_0, Ires_1, Isen_0, Isen_1].
const StateSize = numGroups * numCompartments

// Params are the fixed rates of the compartmental model. All rates are per
// day.
type Params struct {
	// N are the group sizes, Pi the per-group partner change rates.
	N  [numGroups]float64
	Pi [numGroups]float64

	// Beta is the 2x2 per-partnership transmission rate matrix (row:
	// susceptible group, column: source group).
	Beta *mat.Dense

	// Epsilon is the assortativity of the mixing matrix: 1 is fully
	// within-group, 0 fully proportionate.
	Epsilon float64

	// Phi is the treated fraction of infections, Mu the probability that
	// treatment converts a sensitive infection to the resistant strain,
	// Duration the mean infectious period in days. Natural recovery runs at
	// (1-Phi)/Duration and treatment at Phi/Duration.
	Phi      float64
	Mu       float64
	Duration float64

	// Alpha is the demographic turnover rate, Gamma the between-group
	// migration rate.
	Alpha float64
	Gamma float64
}

// DefaultParams returns a parameter set with a small high-activity core
// group and demographic turnover over a fifty-year sexually active span.
func DefaultParams() Params {
	return Params{
		N:        [numGroups]float64{500, 9500},
		Pi:       [numGroups]float64{0.2, 0.05},
		Beta:     mat.NewDense(numGroups, numGroups, []float64{0.5, 0.5, 0.5, 0.5}),
		Epsilon:  0.8,
		Phi:      0.4,
		Mu:       0.0001,
		Duration: 60,
		Alpha:    1.0 / (50 * 365),
		Gamma:    0.0001,
	}
}

// Validate checks the parameter set.
func (p Params) Validate() error {
	for i := 0; i < numGroups; i++ {
		if p.N[i] <= 0 {
			return fmt.Errorf("group size N[%d] must be positive, got %g", i, p.N[i])
		}
		if p.Pi[i] < 0 {
			return fmt.Errorf("partner change rate Pi[%d] must be non-negative, got %g", i, p.Pi[i])
		}
	}
	if p.Beta == nil {
		return fmt.Errorf("transmission matrix Beta is required")
	}
	if r, c := p.Beta.Dims(); r != numGroups || c != numGroups {
		return fmt.Errorf("transmission matrix must be %dx%d, got %dx%d", numGroups, numGroups, r, c)
	}
	if p.Epsilon < 0 || p.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0,1], got %g", p.Epsilon)
	}
	if p.Phi < 0 || p.Phi > 1 {
		return fmt.Errorf("phi must be in [0,1], got %g", p.Phi)
	}
	if p.Mu < 0 || p.Mu > 1 {
		return fmt.Errorf("mu must be in [0,1], got %g", p.Mu)
	}
	if p.Duration <= 0 {
		return fmt.Errorf("infectious duration must be positive, got %g", p.Duration)
	}
	return nil
}

// mixing returns the probability that a partner of a group-i individual
// belongs to group j.
func (p Params) mixing(i, j int) float64 {
	piN := 0.0
	for k := 0; k < numGroups; k++ {
		piN += p.Pi[k] * p.N[k]
	}
	m := (1 - p.Epsilon) * p.Pi[j] * p.N[j] / piN
	if i == j {
		m += p.Epsilon
	}
	return m
}

// Derivatives evaluates dy/dt into dydt. y and dydt must both have length
// StateSize.
func (p Params) Derivatives(y, dydt []float64) {
	s := y[0:numGroups]
	ires := y[numGroups : 2*numGroups]
	isen := y[2*numGroups : 3*numGroups]

	nu := (1 - p.Phi) / p.Duration
	tau := p.Phi / p.Duration

	sumS, sumIres, sumIsen := 0.0, 0.0, 0.0
	for i := 0; i < numGroups; i++ {
		sumS += s[i]
		sumIres += ires[i]
		sumIsen += isen[i]
	}

	for i := 0; i < numGroups; i++ {
		// Per-group forces of infection by strain.
		var forceSen, forceRes float64
		for j := 0; j < numGroups; j++ {
			contact := p.mixing(i, j) * p.Beta.At(i, j) / p.N[j]
			forceSen += contact * isen[j]
			forceRes += contact * ires[j]
		}
		forceSen *= s[i] * p.Pi[i]
		forceRes *= s[i] * p.Pi[i]

		dydt[i] = -(forceSen + forceRes) +
			nu*(isen[i]+ires[i]) +
			tau*(1-p.Mu)*isen[i] +
			p.Alpha*(p.N[i]-s[i]) -
			p.Gamma*s[i] + p.Gamma*p.N[i]*sumS

		dydt[numGroups+i] = forceRes -
			(nu+p.Alpha+p.Gamma)*ires[i] +
			tau*p.Mu*isen[i] +
			p.Gamma*p.N[i]*sumIres

		dydt[2*numGroups+i] = forceSen -
			(nu+tau+p.Alpha+p.Gamma)*isen[i] +
			p.Gamma*p.N[i]*sumIsen
	}
}

// Series is the integrated trajectory, reported as population totals per
// step: all infecteds and resistant infecteds.
type Series struct {
	Times     []float64
	Infected  []float64
	Resistant []float64
}

// Run integrates the system from y0 over [0, days] with step dt using the
// classical fourth-order Runge-Kutta scheme, recording the totals after
// every step.
func Run(p Params, y0 []float64, days, dt float64) (*Series, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(y0) != StateSize {
		return nil, fmt.Errorf("initial state must have length %d, got %d", StateSize, len(y0))
	}
	if days <= 0 || dt <= 0 {
		return nil, fmt.Errorf("days and dt must be positive, got days=%g dt=%g", days, dt)
	}

	steps := int(days / dt)
	y := make([]float64, StateSize)
	copy(y, y0)

	var k1, k2, k3, k4, tmp [StateSize]float64
	series := &Series{
		Times:     make([]float64, 0, steps),
		Infected:  make([]float64, 0, steps),
		Resistant: make([]float64, 0, steps),
	}

	for step := 1; step <= steps; step++ {
		p.Derivatives(y, k1[:])
		axpy(tmp[:], y, k1[:], dt/2)
		p.Derivatives(tmp[:], k2[:])
		axpy(tmp[:], y, k2[:], dt/2)
		p.Derivatives(tmp[:], k3[:])
		axpy(tmp[:], y, k3[:], dt)
		p.Derivatives(tmp[:], k4[:])

		for i := range y {
			y[i] += dt / 6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
		}

		var infected, resistant float64
		for i := 0; i < numGroups; i++ {
			resistant += y[numGroups+i]
			infected += y[numGroups+i] + y[2*numGroups+i]
		}
		series.Times = append(series.Times, float64(step)*dt)
		series.Infected = append(series.Infected, infected)
		series.Resistant = append(series.Resistant, resistant)
	}
	return series, nil
}

// axpy sets dst = y + scale*k.
func axpy(dst, y, k []float64, scale float64) {
	for i := range dst {
		dst[i] = y[i] + scale*k[i]
	}
}
