package netmodel

import (
	"fmt"
	"math/rand/v2"
)

// Status is the disease status of a node: susceptible, infected with the
// sensitive strain, or infected with the resistant strain.
type Status uint8

const (
	Susceptible Status = iota
	Sensitive
	Resistant
)

func (s Status) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Sensitive:
		return "sensitive"
	case Resistant:
		return "resistant"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Model is the graph epidemic model. Per step and infected node: recovery
// with probability nu; for the sensitive strain, successful treatment with
// probability tau*(1-mu) or resistant conversion with probability tau*mu;
// then transmission of the node's strain to each susceptible neighbor with
// probability beta.
type Model struct {
	Beta float64 // per-neighbor transmission probability
	Tau  float64 // treatment probability
	Nu   float64 // spontaneous recovery probability
	Mu   float64 // resistant-conversion fraction of treatment

	graph  *Graph
	status []Status
}

// NewModel binds the parameters to a graph with all nodes susceptible.
func NewModel(g *Graph, beta, tau, nu, mu float64) (*Model, error) {
	for _, p := range []struct {
		name  string
		value float64
	}{{"beta", beta}, {"tau", tau}, {"nu", nu}, {"mu", mu}} {
		if p.value < 0 || p.value > 1 {
			return nil, fmt.Errorf("%s must be a probability in [0,1], got %g", p.name, p.value)
		}
	}
	return &Model{
		Beta:   beta,
		Tau:    tau,
		Nu:     nu,
		Mu:     mu,
		graph:  g,
		status: make([]Status, g.NumNodes()),
	}, nil
}

// Seed marks the given nodes as infected with the sensitive strain.
func (m *Model) Seed(nodes []int) {
	for _, i := range nodes {
		m.status[i] = Sensitive
	}
}

// NodeStatus returns the current status of node i.
func (m *Model) NodeStatus(i int) Status { return m.status[i] }

// Run advances the model the given number of steps and returns the
// infected and resistant count series, one entry per step.
func (m *Model) Run(steps int, rng *rand.Rand) (infected, resistant []int) {
	infected = make([]int, 0, steps)
	resistant = make([]int, 0, steps)

	sources := make([]int, 0, m.graph.NumNodes())

	for t := 0; t < steps; t++ {
		// Snapshot this step's sources; nodes infected during the step do
		// not transmit until the next one.
		sources = sources[:0]
		for i, s := range m.status {
			if s != Susceptible {
				sources = append(sources, i)
			}
		}

		for _, i := range sources {
			switch {
			case rng.Float64() < m.Nu:
				m.status[i] = Susceptible
			case m.status[i] == Sensitive && rng.Float64() < m.Tau*(1-m.Mu):
				m.status[i] = Susceptible
			case m.status[i] == Sensitive && rng.Float64() < m.Tau*m.Mu:
				m.status[i] = Resistant
			}

			if m.status[i] == Susceptible {
				continue
			}
			for _, nb := range m.graph.Neighbors(i) {
				if m.status[nb] == Susceptible && rng.Float64() < m.Beta {
					m.status[nb] = m.status[i]
				}
			}
		}

		numInf, numRes := 0, 0
		for _, s := range m.status {
			if s != Susceptible {
				numInf++
			}
			if s == Resistant {
				numRes++
			}
		}
		infected = append(infected, numInf)
		resistant = append(resistant, numRes)
	}
	return infected, resistant
}
