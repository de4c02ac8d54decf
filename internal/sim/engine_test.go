package sim

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"resistsim/internal/config"
	"resistsim/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// quietConfig returns a configuration with every stochastic rate switched
// off, so scenario tests can enable exactly the dynamics under test.
func quietConfig(size int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Population.Size = size
	cfg.Partnership.FormationProbability = 0
	cfg.Partnership.SteadySeparation = 0
	cfg.Partnership.CasualSeparation = 0
	cfg.Disease.TransmissionMaleFemaleSteady = 0
	cfg.Disease.TransmissionFemaleMaleSteady = 0
	cfg.Disease.TransmissionMaleFemaleCasual = 0
	cfg.Disease.TransmissionFemaleMaleCasual = 0
	cfg.Disease.AsymptomaticMen = 0
	cfg.Disease.AsymptomaticWomen = 0
	cfg.Disease.IncubationMen = 1000
	cfg.Disease.IncubationWomen = 1000
	cfg.Disease.TreatmentDelayMen = 0
	cfg.Disease.TreatmentDelayWomen = 0
	cfg.Disease.RecoverySymptomaticMen = 0
	cfg.Disease.RecoveryAsymptomaticMen = 0
	cfg.Disease.RecoverySymptomaticWomen = 0
	cfg.Disease.RecoveryAsymptomaticWomen = 0
	cfg.Disease.ResistanceProbability = 0
	cfg.Run.InitialInfected = 0
	return cfg
}

func TestFormationAndForcedSeparation(t *testing.T) {
	cfg := quietConfig(2)
	cfg.Partnership.FormationProbability = 1
	// The single demographic cell is hit only by a fraction of the
	// category/age draws, so give the slot plenty of resamples.
	cfg.Partnership.MaxFormationAttempts = 10000

	pop := model.NewPopulation(cfg, rand.New(rand.NewSource(7)))
	m := pop.AddPerson(model.Male, 20, 0, model.LowActivity)
	f := pop.AddPerson(model.Female, 22, 0, model.LowActivity)
	eng := NewWithPopulation(cfg, pop, nil)

	eng.Step()

	require.Len(t, pop.Partnerships(), 1)
	assert.True(t, pop.Partnered(m, f))
	assert.Zero(t, pop.SinglesCount())
	require.NoError(t, pop.CheckInvariants())

	// With both separation probabilities at one, the next day dissolves
	// the pair; its formation phase has no open slots.
	cfg.Partnership.SteadySeparation = 1
	cfg.Partnership.CasualSeparation = 1
	eng.Step()

	assert.Empty(t, pop.Partnerships())
	assert.Equal(t, 2, pop.SinglesCount())
	require.NoError(t, pop.CheckInvariants())
}

func TestResistantTransmissionInSteadyPair(t *testing.T) {
	cfg := quietConfig(2)
	cfg.Disease.TransmissionMaleFemaleSteady = 1
	cfg.Disease.IncubationMen = 0

	pop := model.NewPopulation(cfg, rand.New(rand.NewSource(3)))
	m := pop.AddPerson(model.Male, 25, 0, model.LowActivity)
	f := pop.AddPerson(model.Female, 25, 0, model.LowActivity)
	pop.InfectResistant(m, false)
	pop.FormPartnership(model.Steady, f, m)
	eng := NewWithPopulation(cfg, pop, nil)

	// Day one: the source is still within incubation, nothing spreads.
	eng.Step()
	assert.Equal(t, 1, pop.InfectedCount())

	// Day two: past incubation, certain transmission carries the strain.
	eng.Step()
	assert.Equal(t, model.SymptomaticResistant, pop.Person(f).State)
	assert.Equal(t, 2, pop.InfectedCount())
	assert.Equal(t, 2, pop.ResistantCount())
	require.NoError(t, pop.CheckInvariants())
}

func TestIncubationPromotion(t *testing.T) {
	cfg := quietConfig(2)
	cfg.Disease.IncubationWomen = 0

	pop := model.NewPopulation(cfg, rand.New(rand.NewSource(3)))
	f := pop.AddPerson(model.Female, 30, 0, model.LowActivity)
	pop.AddPerson(model.Male, 30, 0, model.LowActivity)
	pop.Infect(f, true)
	eng := NewWithPopulation(cfg, pop, nil)

	eng.Step()

	assert.Equal(t, model.SymptomaticSensitive, pop.Person(f).State)
	assert.Equal(t, 1, pop.Counts().Symptomatic)
	assert.Zero(t, pop.Counts().Asymptomatic)
	require.NoError(t, pop.CheckInvariants())
}

func TestTreatmentCuresAfterPatientDelay(t *testing.T) {
	cfg := quietConfig(2)
	cfg.Disease.IncubationMen = 2
	cfg.Disease.TreatmentDelayMen = 3

	pop := model.NewPopulation(cfg, rand.New(rand.NewSource(3)))
	m := pop.AddPerson(model.Male, 30, 0, model.LowActivity)
	pop.AddPerson(model.Female, 30, 0, model.LowActivity)
	pop.Infect(m, false)
	eng := NewWithPopulation(cfg, pop, nil)

	// The treatment phase runs before the clock advance, so the cure lands
	// on the first day that starts with the clock at incubation plus delay.
	for day := 0; day < 5; day++ {
		eng.Step()
		require.Equal(t, 1, pop.InfectedCount(), "cured too early on day %d", day)
	}
	eng.Step()
	assert.Zero(t, pop.InfectedCount())
	assert.Equal(t, model.Susceptible, pop.Person(m).State)
	require.NoError(t, pop.CheckInvariants())
}

func TestTreatmentFailureBreedsResistance(t *testing.T) {
	cfg := quietConfig(2)
	cfg.Disease.IncubationMen = 0
	cfg.Disease.ResistanceProbability = 1

	pop := model.NewPopulation(cfg, rand.New(rand.NewSource(3)))
	m := pop.AddPerson(model.Male, 30, 0, model.LowActivity)
	pop.AddPerson(model.Female, 30, 0, model.LowActivity)
	pop.Infect(m, false)
	eng := NewWithPopulation(cfg, pop, nil)

	eng.Step()

	assert.Equal(t, model.SymptomaticResistant, pop.Person(m).State)
	assert.Equal(t, 1, pop.ResistantCount())
	require.NoError(t, pop.CheckInvariants())
}

func TestFormationAbandonsImpossibleSlots(t *testing.T) {
	cfg := quietConfig(10)
	cfg.Partnership.FormationProbability = 1
	cfg.Partnership.MaxFormationAttempts = 3

	// A single-sex population can never pair; every slot must hit the
	// attempt bound and give up rather than loop.
	pop := model.NewPopulation(cfg, rand.New(rand.NewSource(11)))
	for i := 0; i < 10; i++ {
		pop.AddPerson(model.Male, 20+i, 0, model.LowActivity)
	}
	eng := NewWithPopulation(cfg, pop, nil)

	eng.Step()

	assert.Empty(t, pop.Partnerships())
	require.NoError(t, pop.CheckInvariants())
}

func TestAnnualScreening(t *testing.T) {
	build := func(enabled bool) (*Engine, *model.Population) {
		cfg := quietConfig(10)
		cfg.Screening.Enabled = enabled
		cfg.Screening.Percentage = 1.0
		pop := model.NewPopulation(cfg, rand.New(rand.NewSource(19)))
		for i := 0; i < 10; i++ {
			id := pop.AddPerson(model.Male, 20+i, 0, model.LowActivity)
			pop.Infect(id, true)
		}
		return NewWithPopulation(cfg, pop, nil), pop
	}

	// Screening samples with replacement, so it need not clear everyone,
	// but the first draw always cures somebody.
	eng, pop := build(true)
	eng.Step()
	assert.Less(t, pop.InfectedCount(), 10)
	require.NoError(t, pop.CheckInvariants())

	eng, pop = build(false)
	eng.Step()
	assert.Equal(t, 10, pop.InfectedCount())
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Population.Size = 300
	cfg.Run.Days = 30
	cfg.Run.Seed = 42
	cfg.Run.InitialInfected = 5

	run := func() *Result {
		eng, err := New(cfg, nil)
		require.NoError(t, err)
		res, err := eng.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("same-seed runs diverged (-first +second):\n%s", diff)
	}
}

func TestInvariantsHoldAcrossDays(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Population.Size = 200
	cfg.Run.Seed = 8
	cfg.Run.InitialInfected = 10
	// Push the partnership and screening dynamics hard enough to exercise
	// every mutation path within the test horizon.
	cfg.Partnership.FormationProbability = 0.05
	cfg.Partnership.CasualSeparation = 0.3
	cfg.Screening.Enabled = true
	cfg.Screening.Percentage = 0.1

	eng, err := New(cfg, nil)
	require.NoError(t, err)

	for day := 0; day < 60; day++ {
		eng.Step()
		if err := eng.Population().CheckInvariants(); err != nil {
			t.Fatalf("day %d: %v", day+1, err)
		}
	}
}

func TestRunObservesCancellation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Population.Size = 50

	eng, err := New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Population.Size = 1
	_, err := New(cfg, nil)
	assert.Error(t, err)
}
