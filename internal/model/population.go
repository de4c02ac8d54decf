package model

import (
	"fmt"
	"io"
	"math/rand"

	"resistsim/internal/config"
)

// Counts are the running scalar totals kept alongside the derived sets.
type Counts struct {
	Symptomatic     int // symptomatic, sensitive strain
	Asymptomatic    int // asymptomatic, sensitive strain
	ResSymptomatic  int // symptomatic, resistant strain
	ResAsymptomatic int // asymptomatic, resistant strain
	Steady          int // active steady partnerships
}

// Population owns every individual (a fixed arena indexed by ID), the list
// of active partnerships, the derived membership sets used for sampling,
// and the scalar counters. It is constructed once, populated by an
// initialization pass, and then mutated one day at a time by the engine.
//
// Attribute changes that affect set membership or counters must go through
// the mutation methods below; they update the field and every affected set
// and counter together, which is what keeps the sets exact between days.
type Population struct {
	cfg *config.Config
	rng *rand.Rand

	persons      []Person
	partnerships []*Partnership

	males        *IndexSet
	females      *IndexSet
	highActivity *IndexSet
	singles      *IndexSet
	infected     *IndexSet
	resistant    *IndexSet
	ageGroups    [NumAgeGroups]*IndexSet

	counts Counts
}

// NewPopulation returns an empty population bound to cfg and rng. Call
// Populate for the random initialization pass, or AddPerson to build an
// explicit population.
func NewPopulation(cfg *config.Config, rng *rand.Rand) *Population {
	p := &Population{
		cfg:          cfg,
		rng:          rng,
		persons:      make([]Person, 0, cfg.Population.Size),
		males:        NewIndexSet(),
		females:      NewIndexSet(),
		highActivity: NewIndexSet(),
		singles:      NewIndexSet(),
		infected:     NewIndexSet(),
		resistant:    NewIndexSet(),
	}
	for i := range p.ageGroups {
		p.ageGroups[i] = NewIndexSet()
	}
	return p
}

// Populate runs the random initialization pass: cfg.Population.Size
// individuals with drawn gender, age in [MinAge, MaxAge), day-of-year in
// [0, DaysPerYear), and activity level (high only below the cutoff age and
// on a successful Bernoulli draw).
func (p *Population) Populate() {
	for i := 0; i < p.cfg.Population.Size; i++ {
		gender := Female
		if p.rng.Float64() < p.cfg.Population.MaleProbability {
			gender = Male
		}
		age := MinAge + p.rng.Intn(MaxAge-MinAge)
		day := p.rng.Intn(DaysPerYear)

		activity := LowActivity
		if age < ActivityCutoffAge && p.rng.Float64() < p.cfg.Population.HighActivityProbability {
			activity = HighActivity
		}

		p.AddPerson(gender, age, day, activity)
	}
}

// AddPerson appends an individual to the arena and registers it in every
// derived set its attributes select.
func (p *Population) AddPerson(gender Gender, age, day int, activity Activity) ID {
	if age < MinAge || age >= MaxAge {
		panic(fmt.Sprintf("population: adding person with age %d outside [%d,%d)", age, MinAge, MaxAge))
	}
	id := ID(len(p.persons))
	p.persons = append(p.persons, Person{
		ID:                 id,
		Gender:             gender,
		Age:                age,
		Day:                day,
		Activity:           activity,
		State:              Susceptible,
		TimeSinceInfection: -1,
		Partners:           make(map[ID]struct{}),
	})

	if gender == Male {
		p.males.Add(id)
	} else {
		p.females.Add(id)
	}
	if activity == HighActivity {
		p.highActivity.Add(id)
	}
	p.singles.Add(id)
	p.ageGroups[AgeGroupIndex(age)].Add(id)
	return id
}

// Person returns the individual with the given identity.
func (p *Population) Person(id ID) *Person { return &p.persons[id] }

// Size returns the number of individuals.
func (p *Population) Size() int { return len(p.persons) }

// Rand returns the population's random source. Every stochastic phase of a
// run draws from this single stream, in phase order, so a run is
// reproducible for a fixed seed.
func (p *Population) Rand() *rand.Rand { return p.rng }

// Config returns the bound configuration.
func (p *Population) Config() *config.Config { return p.cfg }

// Partnerships returns the active partnership list. Callers must not
// mutate it directly; use FormPartnership and FilterPartnerships.
func (p *Population) Partnerships() []*Partnership { return p.partnerships }

// Counts returns the scalar counters.
func (p *Population) Counts() Counts { return p.counts }

// InfectedCount returns the number of currently infected individuals.
func (p *Population) InfectedCount() int { return p.infected.Len() }

// ResistantCount returns the number of individuals carrying the resistant
// strain.
func (p *Population) ResistantCount() int { return p.resistant.Len() }

// SinglesCount returns the number of individuals with no partners.
func (p *Population) SinglesCount() int { return p.singles.Len() }

// HighActivityCount returns the number of high-activity individuals.
func (p *Population) HighActivityCount() int { return p.highActivity.Len() }

// AgeGroup returns the bucket for a decade group index.
func (p *Population) AgeGroup(group int) *IndexSet { return p.ageGroups[group] }

// ---------------------------------------------------------------------------
// Disease state transitions
// ---------------------------------------------------------------------------

// Infect moves a susceptible individual to the sensitive strain,
// symptomatic or asymptomatic. Calling it on an already infected individual
// is a no-op, which also makes repeated incubation promotion harmless for
// susceptibles.
func (p *Population) Infect(id ID, asymptomatic bool) {
	per := &p.persons[id]
	if per.State != Susceptible {
		return
	}
	per.TimeSinceInfection = 0
	p.infected.Add(id)
	if asymptomatic {
		per.State = AsymptomaticSensitive
		p.counts.Asymptomatic++
	} else {
		per.State = SymptomaticSensitive
		p.counts.Symptomatic++
	}
}

// InfectResistant moves an individual to the resistant strain. From
// susceptible it acts as a direct resistant infection; from
// symptomatic-sensitive it converts the existing infection in place.
// No other source state is a legal conversion path: in particular
// asymptomatic-sensitive infections never convert, mirroring the reference
// dynamics, and reaching here from one is a logic defect.
func (p *Population) InfectResistant(id ID, asymptomatic bool) {
	per := &p.persons[id]
	switch per.State {
	case Susceptible:
		per.TimeSinceInfection = 0
		p.infected.Add(id)
		p.resistant.Add(id)
	case SymptomaticSensitive:
		p.counts.Symptomatic--
		p.resistant.Add(id)
	default:
		panic(fmt.Sprintf("population: resistant conversion of %d from state %s", id, per.State))
	}
	if asymptomatic {
		per.State = AsymptomaticResistant
		p.counts.ResAsymptomatic++
	} else {
		per.State = SymptomaticResistant
		p.counts.ResSymptomatic++
	}
}

// PromoteSymptomatic moves an asymptomatic-sensitive individual to
// symptomatic-sensitive once incubation has completed. It is idempotent:
// any other state is a no-op. The infection clock is not reset.
func (p *Population) PromoteSymptomatic(id ID) {
	per := &p.persons[id]
	if per.State != AsymptomaticSensitive {
		return
	}
	per.State = SymptomaticSensitive
	p.counts.Asymptomatic--
	p.counts.Symptomatic++
}

// Cure returns an individual to susceptible, updating whichever counter and
// sets the current state selects. Curing an already susceptible individual
// is a no-op.
func (p *Population) Cure(id ID) {
	per := &p.persons[id]
	switch per.State {
	case Susceptible:
		return
	case SymptomaticSensitive:
		p.counts.Symptomatic--
	case AsymptomaticSensitive:
		p.counts.Asymptomatic--
	case SymptomaticResistant:
		p.counts.ResSymptomatic--
	case AsymptomaticResistant:
		p.counts.ResAsymptomatic--
	}
	p.infected.Remove(id)
	if per.State.Resistant() {
		p.resistant.Remove(id)
	}
	per.State = Susceptible
	per.TimeSinceInfection = -1
}

// ---------------------------------------------------------------------------
// Clock and demographics
// ---------------------------------------------------------------------------

// AdvanceDay advances the individual's day-of-year and, if infected, the
// infection clock. A day-of-year wraparound triggers the aging transition.
func (p *Population) AdvanceDay(id ID) {
	per := &p.persons[id]
	per.Day++
	if per.State.Infected() {
		per.TimeSinceInfection++
	}
	if per.Day == DaysPerYear {
		p.ageUp(id)
	}
}

// ageUp increments age and resets the day counter, downgrading activity at
// the cutoff and relocating the individual between decade buckets on a
// decade boundary. Individuals reaching MaxAge stay in the oldest bucket;
// the replacement phase resets them.
func (p *Population) ageUp(id ID) {
	per := &p.persons[id]
	per.Age++
	per.Day = 0

	if per.Age >= ActivityCutoffAge && per.Activity == HighActivity {
		per.Activity = LowActivity
		p.highActivity.Remove(id)
	}

	if per.Age%10 == MinAge%10 && per.Age < MaxAge {
		group := AgeGroupIndex(per.Age)
		p.ageGroups[group-1].Remove(id)
		p.ageGroups[group].Add(id)
	}
}

// Replace resets an individual that has reached the terminal age: back to
// MinAge and day zero, activity re-rolled, disease cleared, and every
// partnership involving the individual forcibly dissolved.
func (p *Population) Replace(id ID) {
	per := &p.persons[id]
	if per.Age != MaxAge {
		panic(fmt.Sprintf("population: replacing person %d at age %d", id, per.Age))
	}
	per.Age = MinAge
	per.Day = 0

	p.ageGroups[NumAgeGroups-1].Remove(id)
	p.ageGroups[0].Add(id)

	if p.rng.Float64() < p.cfg.Population.HighActivityProbability {
		per.Activity = HighActivity
		p.highActivity.Add(id)
	} else {
		per.Activity = LowActivity
	}

	p.Cure(id)

	p.FilterPartnerships(func(ps *Partnership) bool {
		return !ps.Involves(id)
	})
}

// ---------------------------------------------------------------------------
// Partnerships
// ---------------------------------------------------------------------------

// Partnered reports whether a and b currently hold a partnership.
func (p *Population) Partnered(a, b ID) bool {
	return p.persons[a].HasPartner(b)
}

// FormPartnership creates a partnership of the given type between two
// distinct, not already partnered individuals, registering it symmetrically
// on both sides.
func (p *Population) FormPartnership(t PartnershipType, a, b ID) *Partnership {
	if a == b {
		panic(fmt.Sprintf("population: partnership of %d with itself", a))
	}
	if p.Partnered(a, b) {
		panic(fmt.Sprintf("population: duplicate partnership between %d and %d", a, b))
	}
	ps := &Partnership{Type: t, A: a, B: b}
	p.addPartner(a, b)
	p.addPartner(b, a)
	p.partnerships = append(p.partnerships, ps)
	if t == Steady {
		p.counts.Steady++
	}
	return ps
}

// FilterPartnerships keeps only the partnerships for which keep returns
// true, dissolving the rest (symmetric deregistration, steady counter
// decrement). keep is invoked in list order exactly once per partnership,
// so random draws inside it are reproducible.
func (p *Population) FilterPartnerships(keep func(*Partnership) bool) {
	kept := p.partnerships[:0]
	for _, ps := range p.partnerships {
		if keep(ps) {
			kept = append(kept, ps)
			continue
		}
		p.removePartner(ps.A, ps.B)
		p.removePartner(ps.B, ps.A)
		if ps.Type == Steady {
			p.counts.Steady--
		}
	}
	// Clear the tail so dissolved partnerships can be collected.
	for i := len(kept); i < len(p.partnerships); i++ {
		p.partnerships[i] = nil
	}
	p.partnerships = kept
}

func (p *Population) addPartner(id, other ID) {
	per := &p.persons[id]
	if per.HasPartner(other) {
		panic(fmt.Sprintf("population: %d already partnered with %d", id, other))
	}
	if per.NumPartners == 0 {
		p.singles.Remove(id)
	}
	per.Partners[other] = struct{}{}
	per.NumPartners++
}

func (p *Population) removePartner(id, other ID) {
	per := &p.persons[id]
	if !per.HasPartner(other) {
		panic(fmt.Sprintf("population: removing absent partner %d from %d", other, id))
	}
	delete(per.Partners, other)
	per.NumPartners--
	if per.NumPartners == 0 {
		p.singles.Add(id)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// CheckInvariants verifies that every derived set and counter matches the
// defining predicate over the arena. It exists for tests and debugging; a
// failure indicates a logic defect in a mutation path.
func (p *Population) CheckInvariants() error {
	var counts Counts
	bucketed := 0
	partnered := 0

	for i := range p.persons {
		per := &p.persons[i]
		id := per.ID

		if (per.Gender == Male) != p.males.Contains(id) {
			return fmt.Errorf("person %d: males set mismatch", id)
		}
		if (per.Gender == Female) != p.females.Contains(id) {
			return fmt.Errorf("person %d: females set mismatch", id)
		}
		if (per.Activity == HighActivity) != p.highActivity.Contains(id) {
			return fmt.Errorf("person %d: high-activity set mismatch", id)
		}
		if per.Single() != p.singles.Contains(id) {
			return fmt.Errorf("person %d: singles set mismatch", id)
		}
		if per.State.Infected() != p.infected.Contains(id) {
			return fmt.Errorf("person %d: infected set mismatch (state %s)", id, per.State)
		}
		if per.State.Resistant() != p.resistant.Contains(id) {
			return fmt.Errorf("person %d: resistant set mismatch (state %s)", id, per.State)
		}
		if per.NumPartners != len(per.Partners) {
			return fmt.Errorf("person %d: partner count %d != set size %d",
				id, per.NumPartners, len(per.Partners))
		}
		for other := range per.Partners {
			if !p.persons[other].HasPartner(id) {
				return fmt.Errorf("person %d: asymmetric partnership with %d", id, other)
			}
		}
		if per.State.Infected() != (per.TimeSinceInfection >= 0) {
			return fmt.Errorf("person %d: infection clock %d inconsistent with state %s",
				id, per.TimeSinceInfection, per.State)
		}

		inBuckets := 0
		for g := 0; g < NumAgeGroups; g++ {
			if p.ageGroups[g].Contains(id) {
				inBuckets++
				expected := AgeGroupIndex(per.Age)
				if per.Age >= MaxAge {
					expected = NumAgeGroups - 1
				}
				if g != expected {
					return fmt.Errorf("person %d: age %d in bucket %d, expected %d",
						id, per.Age, g, expected)
				}
			}
		}
		if inBuckets != 1 {
			return fmt.Errorf("person %d: in %d age buckets", id, inBuckets)
		}
		bucketed++

		partnered += per.NumPartners
		switch per.State {
		case SymptomaticSensitive:
			counts.Symptomatic++
		case AsymptomaticSensitive:
			counts.Asymptomatic++
		case SymptomaticResistant:
			counts.ResSymptomatic++
		case AsymptomaticResistant:
			counts.ResAsymptomatic++
		}
	}

	steady := 0
	degrees := 0
	for _, ps := range p.partnerships {
		if ps.Type == Steady {
			steady++
		}
		degrees += 2
	}
	counts.Steady = steady

	if counts != p.counts {
		return fmt.Errorf("counter mismatch: recomputed %+v, stored %+v", counts, p.counts)
	}
	if sum := counts.Symptomatic + counts.Asymptomatic + counts.ResSymptomatic + counts.ResAsymptomatic; sum != p.infected.Len() {
		return fmt.Errorf("state counters sum to %d, infected set has %d", sum, p.infected.Len())
	}
	if degrees != partnered {
		return fmt.Errorf("partnership list degree total %d != summed partner counts %d", degrees, partnered)
	}
	if bucketed != len(p.persons) {
		return fmt.Errorf("%d of %d persons bucketed", bucketed, len(p.persons))
	}
	return nil
}

// WriteState dumps the full individual and partnership state for debugging.
func (p *Population) WriteState(w io.Writer) {
	fmt.Fprintln(w, "id\tgender\tage\tday\tactivity\tstate\ttsi\tpartners")
	for i := range p.persons {
		per := &p.persons[i]
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%d\t%d\n",
			per.ID, per.Gender, per.Age, per.Day, per.Activity,
			per.State, per.TimeSinceInfection, per.NumPartners)
	}
	fmt.Fprintln(w, "type\ta\tb")
	for _, ps := range p.partnerships {
		fmt.Fprintf(w, "%s\t%d\t%d\n", ps.Type, ps.A, ps.B)
	}
}
