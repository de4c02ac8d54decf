// Package config holds the simulation configuration: population makeup,
// partnership behavior, disease parameters, and run settings. Configuration
// is loaded from a YAML file with environment-independent defaults matching
// the published parameter set.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for a stochastic simulation run.
type Config struct {
	Population  PopulationConfig  `yaml:"population"`
	Partnership PartnershipConfig `yaml:"partnership"`
	Disease     DiseaseConfig     `yaml:"disease"`
	Screening   ScreeningConfig   `yaml:"screening"`
	Run         RunConfig         `yaml:"run"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// PopulationConfig describes the synthetic population.
type PopulationConfig struct {
	Size                    int     `yaml:"size"`
	MaleProbability         float64 `yaml:"male_probability"`
	HighActivityProbability float64 `yaml:"high_activity_probability"`
}

// PartnershipConfig describes partnership formation and separation.
type PartnershipConfig struct {
	// FormationProbability is the per-slot Bernoulli probability rho.
	FormationProbability float64 `yaml:"formation_probability"`

	// SteadyShare (f) is retained for compatibility with the published
	// parameter set; the active formation path folds it into the fixed
	// category weights and never reads it.
	SteadyShare float64 `yaml:"steady_share"`

	SteadySeparation float64 `yaml:"steady_separation"` // sigma1
	CasualSeparation float64 `yaml:"casual_separation"` // sigma2

	// MaxFormationAttempts bounds the resample loop for a single candidate
	// slot. When a demographic cell is structurally empty the slot is
	// abandoned instead of retrying forever.
	MaxFormationAttempts int `yaml:"max_formation_attempts"`
}

// DiseaseConfig describes transmission, incubation, recovery and treatment.
type DiseaseConfig struct {
	TransmissionMaleFemaleSteady float64 `yaml:"transmission_male_female_steady"`
	TransmissionFemaleMaleSteady float64 `yaml:"transmission_female_male_steady"`
	TransmissionMaleFemaleCasual float64 `yaml:"transmission_male_female_casual"`
	TransmissionFemaleMaleCasual float64 `yaml:"transmission_female_male_casual"`

	AsymptomaticMen   float64 `yaml:"asymptomatic_men"`
	AsymptomaticWomen float64 `yaml:"asymptomatic_women"`

	IncubationMen   int `yaml:"incubation_men"`
	IncubationWomen int `yaml:"incubation_women"`

	TreatmentDelayMen   int `yaml:"treatment_delay_men"`
	TreatmentDelayWomen int `yaml:"treatment_delay_women"`

	RecoverySymptomaticMen    float64 `yaml:"recovery_symptomatic_men"`
	RecoveryAsymptomaticMen   float64 `yaml:"recovery_asymptomatic_men"`
	RecoverySymptomaticWomen  float64 `yaml:"recovery_symptomatic_women"`
	RecoveryAsymptomaticWomen float64 `yaml:"recovery_asymptomatic_women"`

	ResistanceProbability float64 `yaml:"resistance_probability"`
}

// ScreeningConfig configures annual population screening. Disabled by
// default; when enabled, a fraction of the population is screened and cured
// once per simulated year.
type ScreeningConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Percentage float64 `yaml:"percentage"`
}

// RunConfig describes a single run.
type RunConfig struct {
	Days            int   `yaml:"days"`
	Seed            int64 `yaml:"seed"`
	InitialInfected int   `yaml:"initial_infected"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Population: PopulationConfig{
			Size:                    10000,
			MaleProbability:         0.5,
			HighActivityProbability: 0.05,
		},
		Partnership: PartnershipConfig{
			FormationProbability: 0.006,
			SteadyShare:          0.2,
			SteadySeparation:     0.0004,
			CasualSeparation:     0.1,
			MaxFormationAttempts: 100,
		},
		Disease: DiseaseConfig{
			TransmissionMaleFemaleSteady: 0.15,
			TransmissionFemaleMaleSteady: 0.0625,
			TransmissionMaleFemaleCasual: 0.6,
			TransmissionFemaleMaleCasual: 0.25,
			AsymptomaticMen:              0.1,
			AsymptomaticWomen:            0.45,
			IncubationMen:                5,
			IncubationWomen:              10,
			TreatmentDelayMen:            5,
			TreatmentDelayWomen:          8,
			RecoverySymptomaticMen:       0.04,
			RecoveryAsymptomaticMen:      0.0074,
			RecoverySymptomaticWomen:     0.03,
			RecoveryAsymptomaticWomen:    0.0044,
			ResistanceProbability:        0.0001,
		},
		Screening: ScreeningConfig{
			Enabled:    false,
			Percentage: 0.02,
		},
		Run: RunConfig{
			Days:            3650,
			Seed:            1,
			InitialInfected: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; a present but invalid file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file, creating the directory if
// needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks the configuration before a run. Out-of-range values are
// rejected outright, never clamped.
func (c *Config) Validate() error {
	if c.Population.Size < 2 {
		return fmt.Errorf("population.size must be at least 2, got %d", c.Population.Size)
	}

	probs := []struct {
		name  string
		value float64
	}{
		{"population.male_probability", c.Population.MaleProbability},
		{"population.high_activity_probability", c.Population.HighActivityProbability},
		{"partnership.formation_probability", c.Partnership.FormationProbability},
		{"partnership.steady_share", c.Partnership.SteadyShare},
		{"partnership.steady_separation", c.Partnership.SteadySeparation},
		{"partnership.casual_separation", c.Partnership.CasualSeparation},
		{"disease.transmission_male_female_steady", c.Disease.TransmissionMaleFemaleSteady},
		{"disease.transmission_female_male_steady", c.Disease.TransmissionFemaleMaleSteady},
		{"disease.transmission_male_female_casual", c.Disease.TransmissionMaleFemaleCasual},
		{"disease.transmission_female_male_casual", c.Disease.TransmissionFemaleMaleCasual},
		{"disease.asymptomatic_men", c.Disease.AsymptomaticMen},
		{"disease.asymptomatic_women", c.Disease.AsymptomaticWomen},
		{"disease.recovery_symptomatic_men", c.Disease.RecoverySymptomaticMen},
		{"disease.recovery_asymptomatic_men", c.Disease.RecoveryAsymptomaticMen},
		{"disease.recovery_symptomatic_women", c.Disease.RecoverySymptomaticWomen},
		{"disease.recovery_asymptomatic_women", c.Disease.RecoveryAsymptomaticWomen},
		{"disease.resistance_probability", c.Disease.ResistanceProbability},
		{"screening.percentage", c.Screening.Percentage},
	}
	for _, p := range probs {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("%s must be a probability in [0,1], got %g", p.name, p.value)
		}
	}

	if c.Partnership.MaxFormationAttempts < 1 {
		return fmt.Errorf("partnership.max_formation_attempts must be at least 1, got %d",
			c.Partnership.MaxFormationAttempts)
	}
	if c.Disease.IncubationMen < 0 || c.Disease.IncubationWomen < 0 {
		return fmt.Errorf("disease incubation periods must be non-negative, got men=%d women=%d",
			c.Disease.IncubationMen, c.Disease.IncubationWomen)
	}
	if c.Disease.TreatmentDelayMen < 0 || c.Disease.TreatmentDelayWomen < 0 {
		return fmt.Errorf("disease treatment delays must be non-negative, got men=%d women=%d",
			c.Disease.TreatmentDelayMen, c.Disease.TreatmentDelayWomen)
	}
	if c.Run.Days < 1 {
		return fmt.Errorf("run.days must be at least 1, got %d", c.Run.Days)
	}
	if c.Run.InitialInfected < 0 || c.Run.InitialInfected > c.Population.Size {
		return fmt.Errorf("run.initial_infected must be in [0, population.size], got %d",
			c.Run.InitialInfected)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}

	return nil
}
