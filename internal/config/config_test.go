package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 10000, cfg.Population.Size)
	assert.Equal(t, 0.006, cfg.Partnership.FormationProbability)
	assert.Equal(t, 0.0004, cfg.Partnership.SteadySeparation)
	assert.Equal(t, 0.1, cfg.Partnership.CasualSeparation)
	assert.Equal(t, 0.15, cfg.Disease.TransmissionMaleFemaleSteady)
	assert.Equal(t, 0.0001, cfg.Disease.ResistanceProbability)
	assert.Equal(t, 5, cfg.Disease.IncubationMen)
	assert.Equal(t, 10, cfg.Disease.IncubationWomen)
	assert.Equal(t, 3650, cfg.Run.Days)
	assert.False(t, cfg.Screening.Enabled)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resistsim.yaml")
	data := []byte("run:\n  days: 100\n  seed: 77\nscreening:\n  enabled: true\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Run.Days)
	assert.Equal(t, int64(77), cfg.Run.Seed)
	assert.True(t, cfg.Screening.Enabled)

	// Unmentioned sections keep their defaults.
	assert.Equal(t, 10000, cfg.Population.Size)
	assert.Equal(t, 0.45, cfg.Disease.AsymptomaticWomen)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "resistsim.yaml")

	cfg := DefaultConfig()
	cfg.Run.Seed = 123
	cfg.Population.Size = 500
	cfg.Disease.ResistanceProbability = 0.01
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tiny population", func(c *Config) { c.Population.Size = 1 }},
		{"negative probability", func(c *Config) { c.Partnership.FormationProbability = -0.1 }},
		{"probability above one", func(c *Config) { c.Disease.TransmissionMaleFemaleCasual = 1.5 }},
		{"zero formation attempts", func(c *Config) { c.Partnership.MaxFormationAttempts = 0 }},
		{"negative incubation", func(c *Config) { c.Disease.IncubationWomen = -1 }},
		{"negative treatment delay", func(c *Config) { c.Disease.TreatmentDelayMen = -2 }},
		{"zero days", func(c *Config) { c.Run.Days = 0 }},
		{"too many initial infected", func(c *Config) { c.Run.InitialInfected = c.Population.Size + 1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
