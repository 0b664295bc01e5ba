package config

import (
	"testing"
	"time"

	"civicgrid-be/models"

	"github.com/stretchr/testify/assert"
)

func TestLoadEscalationConfigDefaults(t *testing.T) {
	cfg := LoadEscalationConfig()

	assert.Equal(t, 48*time.Hour, cfg.SLAFor(models.RoleFieldStaff))
	assert.Equal(t, 72*time.Hour, cfg.SLAFor(models.RoleSupervisor))
	assert.Equal(t, 96*time.Hour, cfg.SLAFor(models.RoleCommissioner))
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
}

func TestDurationEnvOverrides(t *testing.T) {
	t.Setenv("ESCALATION_SWEEP_INTERVAL", "5m")
	assert.Equal(t, 5*time.Minute, LoadEscalationConfig().SweepInterval)

	// Bare integers read as minutes.
	t.Setenv("ESCALATION_SWEEP_INTERVAL", "30")
	assert.Equal(t, 30*time.Minute, LoadEscalationConfig().SweepInterval)

	// Garbage falls back to the default.
	t.Setenv("ESCALATION_SWEEP_INTERVAL", "soon")
	assert.Equal(t, 15*time.Minute, LoadEscalationConfig().SweepInterval)
}

func TestSLAForUnknownRoleFallsBack(t *testing.T) {
	cfg := LoadEscalationConfig()
	assert.Equal(t, 48*time.Hour, cfg.SLAFor(models.RoleCitizen))
}
