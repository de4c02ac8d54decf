package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resistsim/internal/config"
)

func testPopulation(t *testing.T, size int) *Population {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Population.Size = size
	return NewPopulation(cfg, rand.New(rand.NewSource(1)))
}

func TestPopulateRespectsInvariants(t *testing.T) {
	p := testPopulation(t, 500)
	p.Populate()

	require.Equal(t, 500, p.Size())
	require.NoError(t, p.CheckInvariants())
	assert.Equal(t, 500, p.SinglesCount())
	assert.Zero(t, p.InfectedCount())

	// Everyone starts within the modeled age range.
	for id := ID(0); int(id) < p.Size(); id++ {
		per := p.Person(id)
		assert.GreaterOrEqual(t, per.Age, MinAge)
		assert.Less(t, per.Age, MaxAge)
		if per.Activity == HighActivity {
			assert.Less(t, per.Age, ActivityCutoffAge)
		}
	}
}

func TestAddPersonRejectsOutOfRangeAge(t *testing.T) {
	p := testPopulation(t, 4)
	assert.Panics(t, func() { p.AddPerson(Male, MinAge-1, 0, LowActivity) })
	assert.Panics(t, func() { p.AddPerson(Female, MaxAge, 0, LowActivity) })
}

func TestInfectTransitions(t *testing.T) {
	p := testPopulation(t, 4)
	a := p.AddPerson(Male, 20, 0, LowActivity)
	b := p.AddPerson(Female, 25, 0, LowActivity)

	p.Infect(a, false)
	p.Infect(b, true)

	assert.Equal(t, SymptomaticSensitive, p.Person(a).State)
	assert.Equal(t, AsymptomaticSensitive, p.Person(b).State)
	assert.Equal(t, 0, p.Person(a).TimeSinceInfection)
	assert.Equal(t, 2, p.InfectedCount())
	assert.Equal(t, 1, p.Counts().Symptomatic)
	assert.Equal(t, 1, p.Counts().Asymptomatic)

	// Re-infecting an infected individual changes nothing.
	p.Infect(a, true)
	assert.Equal(t, SymptomaticSensitive, p.Person(a).State)
	assert.Equal(t, 1, p.Counts().Symptomatic)

	require.NoError(t, p.CheckInvariants())
}

func TestInfectResistantPaths(t *testing.T) {
	p := testPopulation(t, 4)
	direct := p.AddPerson(Female, 30, 0, LowActivity)
	converted := p.AddPerson(Male, 30, 0, LowActivity)
	asym := p.AddPerson(Male, 40, 0, LowActivity)

	// Direct resistant infection of a susceptible.
	p.InfectResistant(direct, true)
	assert.Equal(t, AsymptomaticResistant, p.Person(direct).State)
	assert.Equal(t, 0, p.Person(direct).TimeSinceInfection)

	// In-place conversion of a symptomatic-sensitive infection keeps the
	// infection clock running.
	p.Infect(converted, false)
	p.AdvanceDay(converted)
	p.AdvanceDay(converted)
	p.InfectResistant(converted, false)
	assert.Equal(t, SymptomaticResistant, p.Person(converted).State)
	assert.Equal(t, 2, p.Person(converted).TimeSinceInfection)
	assert.Zero(t, p.Counts().Symptomatic)

	assert.Equal(t, 2, p.ResistantCount())
	require.NoError(t, p.CheckInvariants())

	// Asymptomatic-sensitive infections never convert.
	p.Infect(asym, true)
	assert.Panics(t, func() { p.InfectResistant(asym, false) })
}

func TestPromoteSymptomatic(t *testing.T) {
	p := testPopulation(t, 4)
	id := p.AddPerson(Female, 20, 0, LowActivity)

	p.Infect(id, true)
	p.AdvanceDay(id)
	p.PromoteSymptomatic(id)

	assert.Equal(t, SymptomaticSensitive, p.Person(id).State)
	assert.Equal(t, 1, p.Person(id).TimeSinceInfection, "promotion must not reset the clock")
	assert.Equal(t, 1, p.Counts().Symptomatic)
	assert.Zero(t, p.Counts().Asymptomatic)

	// Promoting again, or promoting a non-asymptomatic state, is a no-op.
	p.PromoteSymptomatic(id)
	assert.Equal(t, 1, p.Counts().Symptomatic)

	require.NoError(t, p.CheckInvariants())
}

func TestCureIdempotent(t *testing.T) {
	p := testPopulation(t, 4)
	id := p.AddPerson(Male, 20, 0, LowActivity)

	p.InfectResistant(id, false)
	p.Cure(id)

	assert.Equal(t, Susceptible, p.Person(id).State)
	assert.Equal(t, -1, p.Person(id).TimeSinceInfection)
	assert.Zero(t, p.InfectedCount())
	assert.Zero(t, p.ResistantCount())

	p.Cure(id)
	assert.Zero(t, p.InfectedCount())
	require.NoError(t, p.CheckInvariants())
}

func TestPartnershipBookkeeping(t *testing.T) {
	p := testPopulation(t, 4)
	m := p.AddPerson(Male, 20, 0, HighActivity)
	f := p.AddPerson(Female, 22, 0, LowActivity)
	f2 := p.AddPerson(Female, 24, 0, HighActivity)

	p.FormPartnership(Steady, f, m)
	p.FormPartnership(Casual, f2, m)

	assert.True(t, p.Partnered(m, f))
	assert.True(t, p.Partnered(f, m))
	assert.Equal(t, 2, p.Person(m).NumPartners)
	assert.Equal(t, 1, p.Counts().Steady)
	assert.Equal(t, 0, p.SinglesCount())
	require.NoError(t, p.CheckInvariants())

	assert.Panics(t, func() { p.FormPartnership(Casual, f, m) }, "duplicate pair")
	assert.Panics(t, func() { p.FormPartnership(Steady, m, m) }, "self pair")

	// Dissolve only the steady partnership.
	p.FilterPartnerships(func(ps *Partnership) bool { return ps.Type != Steady })

	assert.False(t, p.Partnered(m, f))
	assert.True(t, p.Partnered(m, f2))
	assert.Zero(t, p.Counts().Steady)
	assert.Equal(t, 1, p.SinglesCount(), "f is single again")
	require.NoError(t, p.CheckInvariants())

	p.FilterPartnerships(func(*Partnership) bool { return false })
	assert.Equal(t, 3, p.SinglesCount())
	assert.Empty(t, p.Partnerships())
	require.NoError(t, p.CheckInvariants())
}

func TestAdvanceDayAgesAcrossBuckets(t *testing.T) {
	p := testPopulation(t, 4)
	id := p.AddPerson(Female, 24, DaysPerYear-1, LowActivity)

	p.AdvanceDay(id)

	per := p.Person(id)
	assert.Equal(t, 25, per.Age)
	assert.Equal(t, 0, per.Day)
	assert.False(t, p.AgeGroup(0).Contains(id))
	assert.True(t, p.AgeGroup(1).Contains(id))
	require.NoError(t, p.CheckInvariants())
}

func TestAdvanceDayDowngradesActivityAtCutoff(t *testing.T) {
	p := testPopulation(t, 4)
	id := p.AddPerson(Male, ActivityCutoffAge-1, DaysPerYear-1, HighActivity)

	p.AdvanceDay(id)

	assert.Equal(t, LowActivity, p.Person(id).Activity)
	assert.Zero(t, p.HighActivityCount())
	require.NoError(t, p.CheckInvariants())
}

func TestAdvanceDayTicksInfectionClock(t *testing.T) {
	p := testPopulation(t, 4)
	sick := p.AddPerson(Male, 20, 5, LowActivity)
	well := p.AddPerson(Female, 20, 5, LowActivity)
	p.Infect(sick, false)

	p.AdvanceDay(sick)
	p.AdvanceDay(well)

	assert.Equal(t, 1, p.Person(sick).TimeSinceInfection)
	assert.Equal(t, -1, p.Person(well).TimeSinceInfection)
}

func TestReplaceResetsTerminalIndividual(t *testing.T) {
	p := testPopulation(t, 4)
	old := p.AddPerson(Male, MaxAge-1, DaysPerYear-1, LowActivity)
	partner := p.AddPerson(Female, 40, 0, LowActivity)

	p.Infect(old, false)
	p.FormPartnership(Steady, partner, old)
	p.AdvanceDay(old) // reaches MaxAge

	require.Equal(t, MaxAge, p.Person(old).Age)
	p.Replace(old)

	per := p.Person(old)
	assert.Equal(t, MinAge, per.Age)
	assert.Equal(t, 0, per.Day)
	assert.Equal(t, Susceptible, per.State)
	assert.Zero(t, per.NumPartners)
	assert.True(t, p.AgeGroup(0).Contains(old))
	assert.False(t, p.AgeGroup(NumAgeGroups-1).Contains(old))
	assert.Empty(t, p.Partnerships())
	assert.Equal(t, 2, p.SinglesCount())
	require.NoError(t, p.CheckInvariants())
}

func TestReplaceBeforeTerminalAgePanics(t *testing.T) {
	p := testPopulation(t, 4)
	id := p.AddPerson(Female, 30, 0, LowActivity)
	assert.Panics(t, func() { p.Replace(id) })
}
