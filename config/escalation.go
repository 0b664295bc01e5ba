package config

import (
	"os"
	"strconv"
	"time"

	"civicgrid-be/models"
)

const (
	defaultFieldStaffSLA   = 48 * time.Hour
	defaultSupervisorSLA   = 72 * time.Hour
	defaultCommissionerSLA = 96 * time.Hour
	defaultSweepInterval   = 15 * time.Minute
	defaultAttemptTimeout  = 5 * time.Second
	defaultMLTimeout       = 3 * time.Second
)

// EscalationConfig holds the SLA windows and sweep cadence. SLA windows are
// per assigned role tier; the deadline resets whenever the tier changes.
type EscalationConfig struct {
	SLAWindows     map[models.Role]time.Duration
	SweepInterval  time.Duration
	AttemptTimeout time.Duration
}

// SLAFor returns the escalation window for a role tier.
func (c EscalationConfig) SLAFor(role models.Role) time.Duration {
	if d, ok := c.SLAWindows[role]; ok {
		return d
	}
	return defaultFieldStaffSLA
}

// LoadEscalationConfig reads the escalation policy from the environment.
func LoadEscalationConfig() EscalationConfig {
	return EscalationConfig{
		SLAWindows: map[models.Role]time.Duration{
			models.RoleFieldStaff:   durationEnv("ESCALATION_SLA_FIELD_STAFF", defaultFieldStaffSLA),
			models.RoleSupervisor:   durationEnv("ESCALATION_SLA_SUPERVISOR", defaultSupervisorSLA),
			models.RoleCommissioner: durationEnv("ESCALATION_SLA_COMMISSIONER", defaultCommissionerSLA),
		},
		SweepInterval:  durationEnv("ESCALATION_SWEEP_INTERVAL", defaultSweepInterval),
		AttemptTimeout: durationEnv("ESCALATION_ATTEMPT_TIMEOUT", defaultAttemptTimeout),
	}
}

// ClassifierConfig points at the optional ML validation service. An empty
// URL disables classification entirely.
type ClassifierConfig struct {
	URL     string
	Timeout time.Duration
}

// LoadClassifierConfig reads the ML classifier settings from the environment.
func LoadClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		URL:     os.Getenv("ML_API_URL"),
		Timeout: durationEnv("ML_API_TIMEOUT", defaultMLTimeout),
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// Bare integers are treated as minutes.
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return fallback
}
