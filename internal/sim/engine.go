// Package sim implements the discrete-time update engine that evolves a
// population one day at a time, and a bounded-parallel batch runner for
// multi-seed studies. A day is seven strictly ordered phases: partnership
// formation, transmission, separation, replacement, recovery, treatment,
// and the clock advance. Every random draw comes from one seeded stream in
// phase order, so runs are reproducible.
package sim

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"resistsim/internal/config"
	"resistsim/internal/model"
)

// Partnership-formation category weights, renormalized by their sum. The
// five categories select candidate pools by partnership type and activity
// level: steady (singles on both sides), high/high casual, low-activity
// single male with high-activity female, the mirror of that, and low/low
// casual (singles on both sides).
const (
	weightSteady   = 0.2
	weightHighHigh = 0.8
	weightLowHigh  = 0.08
	weightHighLow  = 0.08
	weightLowLow   = 0.08

	weightTotal = weightSteady + weightHighHigh + weightLowHigh + weightHighLow + weightLowLow
)

// poolFilter selects eligible candidates within a gender and age group.
type poolFilter uint8

const (
	poolSingles poolFilter = iota
	poolHighActivity
	poolLowActivitySingles
)

// Result is the per-day output of one run: the infected and
// resistant-infected counts after each simulated day.
type Result struct {
	Seed      int64
	Days      int
	Infected  []int
	Resistant []int
}

// Engine drives one population through simulated days. It exclusively owns
// the population aggregate for the duration of a run.
type Engine struct {
	cfg    *config.Config
	pop    *model.Population
	mixing *model.MixingTable
	rng    *rand.Rand
	log    *zap.Logger

	day int

	// Scratch buffers for candidate pools, reused across formation
	// attempts.
	maleBuf   []model.ID
	femaleBuf []model.ID
}

// New validates cfg, builds a freshly populated engine seeded from
// cfg.Run.Seed, and seeds the configured number of initial infections.
func New(cfg *config.Config, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Run.Seed))
	pop := model.NewPopulation(cfg, rng)
	pop.Populate()

	e := newEngine(cfg, pop, log)
	e.seedInfections(cfg.Run.InitialInfected)
	return e, nil
}

// NewWithPopulation wraps an explicitly constructed population. The caller
// is responsible for cfg validity and any initial infections.
func NewWithPopulation(cfg *config.Config, pop *model.Population, log *zap.Logger) *Engine {
	return newEngine(cfg, pop, log)
}

func newEngine(cfg *config.Config, pop *model.Population, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		pop:    pop,
		mixing: model.NewMixingTable(),
		rng:    pop.Rand(),
		log:    log,
	}
}

// Population returns the engine's population aggregate.
func (e *Engine) Population() *model.Population { return e.pop }

// Day returns the number of completed simulated days.
func (e *Engine) Day() int { return e.day }

// Run executes the configured number of days and returns the two output
// series. Cancellation is observed between days only; a cancelled run has
// no valid partial output.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	days := e.cfg.Run.Days
	res := &Result{
		Seed:      e.cfg.Run.Seed,
		Days:      days,
		Infected:  make([]int, 0, days),
		Resistant: make([]int, 0, days),
	}

	e.log.Info("starting run",
		zap.Int64("seed", e.cfg.Run.Seed),
		zap.Int("days", days),
		zap.Int("population", e.pop.Size()),
		zap.Int("initial_infected", e.pop.InfectedCount()))

	for d := 0; d < days; d++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		e.Step()
		res.Infected = append(res.Infected, e.pop.InfectedCount())
		res.Resistant = append(res.Resistant, e.pop.ResistantCount())
	}

	e.log.Info("run complete",
		zap.Int64("seed", e.cfg.Run.Seed),
		zap.Int("final_infected", e.pop.InfectedCount()),
		zap.Int("final_resistant", e.pop.ResistantCount()))
	return res, nil
}

// Step advances the population by one simulated day.
func (e *Engine) Step() {
	e.formPartnerships()
	e.transmit()
	e.separate()
	e.replace()
	e.recoverSpontaneously()
	e.treat()
	if e.cfg.Screening.Enabled && e.day%model.DaysPerYear == 0 {
		e.screen()
	}
	e.advanceClocks()
	e.day++

	e.log.Debug("day complete",
		zap.Int("day", e.day),
		zap.Int("infected", e.pop.InfectedCount()),
		zap.Int("resistant", e.pop.ResistantCount()),
		zap.Int("partnerships", len(e.pop.Partnerships())),
		zap.Int("steady", e.pop.Counts().Steady))
}

// seedInfections infects n distinct susceptible individuals with the
// sensitive strain, symptomatic or asymptomatic by the sex-specific
// probability.
func (e *Engine) seedInfections(n int) {
	for seeded := 0; seeded < n; {
		id := model.ID(e.rng.Intn(e.pop.Size()))
		per := e.pop.Person(id)
		if per.State.Infected() {
			continue
		}
		asym := e.rng.Float64() < e.asymptomaticProb(per.Gender)
		e.pop.Infect(id, asym)
		seeded++
	}
}

// ---------------------------------------------------------------------------
// Phase 1: partnership formation
// ---------------------------------------------------------------------------

// formPartnerships fills the day's candidate slots. The target slot count
// is floor(population/2) minus the current partnership count, a fixed
// carrying-capacity heuristic; each slot is attempted with probability rho.
func (e *Engine) formPartnerships() {
	n := e.pop.Size()/2 - len(e.pop.Partnerships())
	rho := e.cfg.Partnership.FormationProbability
	for i := 0; i < n; i++ {
		if e.rng.Float64() < rho {
			e.attemptFormation()
		}
	}
}

// attemptFormation resamples age groups and a partnership category until a
// pairing succeeds or the attempt bound is hit. The bound keeps a
// structurally empty demographic cell from livelocking the day; an
// exhausted slot is simply abandoned.
func (e *Engine) attemptFormation() {
	for attempt := 0; attempt < e.cfg.Partnership.MaxFormationAttempts; attempt++ {
		femaleGroup, maleGroup := e.mixing.Sample(e.rng)

		u := e.rng.Float64()
		var (
			ptype model.PartnershipType
			mPool []model.ID
			fPool []model.ID
		)
		switch {
		case u < weightSteady/weightTotal:
			ptype = model.Steady
			mPool = e.pool(&e.maleBuf, maleGroup, model.Male, poolSingles)
			fPool = e.pool(&e.femaleBuf, femaleGroup, model.Female, poolSingles)
		case u < (weightSteady+weightHighHigh)/weightTotal:
			ptype = model.Casual
			mPool = e.pool(&e.maleBuf, maleGroup, model.Male, poolHighActivity)
			fPool = e.pool(&e.femaleBuf, femaleGroup, model.Female, poolHighActivity)
		case u < (weightSteady+weightHighHigh+weightLowHigh)/weightTotal:
			ptype = model.Casual
			mPool = e.pool(&e.maleBuf, maleGroup, model.Male, poolLowActivitySingles)
			fPool = e.pool(&e.femaleBuf, femaleGroup, model.Female, poolHighActivity)
		case u < (weightSteady+weightHighHigh+weightLowHigh+weightHighLow)/weightTotal:
			ptype = model.Casual
			mPool = e.pool(&e.maleBuf, maleGroup, model.Male, poolHighActivity)
			fPool = e.pool(&e.femaleBuf, femaleGroup, model.Female, poolLowActivitySingles)
		default:
			ptype = model.Casual
			mPool = e.pool(&e.maleBuf, maleGroup, model.Male, poolSingles)
			fPool = e.pool(&e.femaleBuf, femaleGroup, model.Female, poolSingles)
		}

		if len(mPool) == 0 || len(fPool) == 0 {
			continue
		}
		m := mPool[e.rng.Intn(len(mPool))]
		f := fPool[e.rng.Intn(len(fPool))]
		if e.pop.Partnered(m, f) {
			continue
		}
		e.pop.FormPartnership(ptype, f, m)
		return
	}
}

// pool collects the eligible candidates of one gender within an age group,
// filtered by activity or singleness. buf is a reusable scratch slice.
func (e *Engine) pool(buf *[]model.ID, group int, gender model.Gender, filter poolFilter) []model.ID {
	out := (*buf)[:0]
	for _, id := range e.pop.AgeGroup(group).Members() {
		per := e.pop.Person(id)
		if per.Gender != gender {
			continue
		}
		switch filter {
		case poolSingles:
			if !per.Single() {
				continue
			}
		case poolHighActivity:
			if per.Activity != model.HighActivity {
				continue
			}
		case poolLowActivitySingles:
			if per.Activity != model.LowActivity || !per.Single() {
				continue
			}
		}
		out = append(out, id)
	}
	*buf = out
	return out
}

// ---------------------------------------------------------------------------
// Phase 2: transmission
// ---------------------------------------------------------------------------

// transmit evaluates every active partnership where exactly one side is
// infected and past its sex-specific incubation period. Direction and
// partnership type select the transmission probability; a second draw
// decides symptomatic versus asymptomatic, and a resistant source passes
// on the resistant variant.
func (e *Engine) transmit() {
	d := &e.cfg.Disease
	for _, ps := range e.pop.Partnerships() {
		a := e.pop.Person(ps.A)
		b := e.pop.Person(ps.B)

		var src, dst *model.Person
		switch {
		case a.State.Infected() && !b.State.Infected():
			src, dst = a, b
		case !a.State.Infected() && b.State.Infected():
			src, dst = b, a
		default:
			continue
		}
		if src.TimeSinceInfection <= e.incubation(src.Gender) {
			continue
		}

		var pTrans float64
		if src.Gender == model.Male {
			if ps.Type == model.Steady {
				pTrans = d.TransmissionMaleFemaleSteady
			} else {
				pTrans = d.TransmissionMaleFemaleCasual
			}
		} else {
			if ps.Type == model.Steady {
				pTrans = d.TransmissionFemaleMaleSteady
			} else {
				pTrans = d.TransmissionFemaleMaleCasual
			}
		}
		if e.rng.Float64() >= pTrans {
			continue
		}

		asym := e.rng.Float64() < e.asymptomaticProb(dst.Gender)
		if src.State.Resistant() {
			e.pop.InfectResistant(dst.ID, asym)
		} else {
			e.pop.Infect(dst.ID, asym)
		}
	}
}

// ---------------------------------------------------------------------------
// Phase 3: separation
// ---------------------------------------------------------------------------

func (e *Engine) separate() {
	steadySep := e.cfg.Partnership.SteadySeparation
	casualSep := e.cfg.Partnership.CasualSeparation
	e.pop.FilterPartnerships(func(ps *model.Partnership) bool {
		p := casualSep
		if ps.Type == model.Steady {
			p = steadySep
		}
		return e.rng.Float64() >= p
	})
}

// ---------------------------------------------------------------------------
// Phase 4: replacement
// ---------------------------------------------------------------------------

// replace resets every individual that has reached the terminal age. After
// this phase no individual is older than MaxAge-1.
func (e *Engine) replace() {
	for id := model.ID(0); int(id) < e.pop.Size(); id++ {
		if e.pop.Person(id).Age == model.MaxAge {
			e.pop.Replace(id)
		}
	}
}

// ---------------------------------------------------------------------------
// Phase 5: spontaneous recovery
// ---------------------------------------------------------------------------

func (e *Engine) recoverSpontaneously() {
	d := &e.cfg.Disease
	for id := model.ID(0); int(id) < e.pop.Size(); id++ {
		per := e.pop.Person(id)
		if !per.State.Infected() {
			continue
		}
		var rate float64
		if per.Gender == model.Male {
			if per.State.Symptomatic() {
				rate = d.RecoverySymptomaticMen
			} else {
				rate = d.RecoveryAsymptomaticMen
			}
		} else {
			if per.State.Symptomatic() {
				rate = d.RecoverySymptomaticWomen
			} else {
				rate = d.RecoveryAsymptomaticWomen
			}
		}
		if e.rng.Float64() < rate {
			e.pop.Cure(id)
		}
	}
}

// ---------------------------------------------------------------------------
// Phase 6: treatment and resistance emergence
// ---------------------------------------------------------------------------

// treat handles symptomatic-sensitive individuals only. With the
// resistance probability the treatment backfires into a resistant
// conversion; otherwise the individual is cured once the infection clock
// reaches incubation plus the sex-specific patient delay.
func (e *Engine) treat() {
	d := &e.cfg.Disease
	for id := model.ID(0); int(id) < e.pop.Size(); id++ {
		per := e.pop.Person(id)
		if per.State != model.SymptomaticSensitive {
			continue
		}
		if e.rng.Float64() < d.ResistanceProbability {
			asym := e.rng.Float64() < e.asymptomaticProb(per.Gender)
			e.pop.InfectResistant(id, asym)
			continue
		}
		if per.TimeSinceInfection >= e.incubation(per.Gender)+e.treatmentDelay(per.Gender) {
			e.pop.Cure(id)
		}
	}
}

// screen cures a screened sample of the population. The sample is drawn
// with replacement; curing a susceptible individual is a no-op.
func (e *Engine) screen() {
	n := int(float64(e.pop.Size()) * e.cfg.Screening.Percentage)
	for i := 0; i < n; i++ {
		e.pop.Cure(model.ID(e.rng.Intn(e.pop.Size())))
	}
}

// ---------------------------------------------------------------------------
// Phase 7: clock advance and incubation promotion
// ---------------------------------------------------------------------------

// advanceClocks advances every individual's day/age clock and promotes
// asymptomatic sensitive infections to symptomatic once the sex-specific
// incubation period has been exceeded. The promotion is idempotent, so
// re-applying it on later days changes nothing.
func (e *Engine) advanceClocks() {
	for id := model.ID(0); int(id) < e.pop.Size(); id++ {
		e.pop.AdvanceDay(id)
		per := e.pop.Person(id)
		if per.TimeSinceInfection > e.incubation(per.Gender) {
			e.pop.PromoteSymptomatic(id)
		}
	}
}

// ---------------------------------------------------------------------------
// Parameter helpers
// ---------------------------------------------------------------------------

func (e *Engine) incubation(g model.Gender) int {
	if g == model.Male {
		return e.cfg.Disease.IncubationMen
	}
	return e.cfg.Disease.IncubationWomen
}

func (e *Engine) treatmentDelay(g model.Gender) int {
	if g == model.Male {
		return e.cfg.Disease.TreatmentDelayMen
	}
	return e.cfg.Disease.TreatmentDelayWomen
}

func (e *Engine) asymptomaticProb(g model.Gender) float64 {
	if g == model.Male {
		return e.cfg.Disease.AsymptomaticMen
	}
	return e.cfg.Disease.AsymptomaticWomen
}
