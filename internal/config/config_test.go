package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 80.0, cfg.Approval.RiskThreshold)
	assert.ElementsMatch(t, []string{"HIGH", "CRITICAL"}, cfg.Approval.Priorities)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	body := `
vocabulary:
  case_types: [FRAUD]
  priorities: [LOW, HIGH]
  typologies: [FRAUD]
approval:
  risk_threshold: 60
  priorities: [HIGH]
users:
  alice: [approver]
  bob: []
operation_timeout: 3s
storage:
  in_memory: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"FRAUD"}, cfg.Vocabulary.CaseTypes)
	assert.Equal(t, 60.0, cfg.Approval.RiskThreshold)
	assert.Equal(t, 3*time.Second, cfg.OperationTimeout)
	assert.True(t, cfg.Storage.InMemory)
	assert.True(t, cfg.HasRole("alice", RoleApprover))
	assert.False(t, cfg.HasRole("bob", RoleApprover))
	assert.False(t, cfg.HasRole("mallory", RoleApprover))
	// untouched sections keep their defaults
	assert.Equal(t, "approvers", cfg.Groups.Approvers)
}

func TestLoad_RejectsApprovalPriorityOutsideVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	body := `
vocabulary:
  priorities: [LOW]
approval:
  priorities: [URGENT]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URGENT")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CASES_HTTP_ADDR":             ":9999",
		"CASES_DATA_DIR":              "/var/lib/cases",
		"CASES_OPERATION_TIMEOUT":     "250ms",
		"TEMPORAL_HOSTPORT":           "temporal:7233",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "/var/lib/cases", cfg.Storage.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.OperationTimeout)
	assert.Equal(t, "temporal:7233", cfg.Temporal.HostPort)
	assert.Equal(t, "collector:4317", cfg.OTelEndpoint)
}

func TestApplyEnv_BadDuration(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "CASES_OPERATION_TIMEOUT" {
			return "soon", true
		}
		return "", false
	})
	require.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty case types", func(c *Config) { c.Vocabulary.CaseTypes = nil }},
		{"threshold above range", func(c *Config) { c.Approval.RiskThreshold = 101 }},
		{"zero timeout", func(c *Config) { c.OperationTimeout = 0 }},
		{"no storage path", func(c *Config) { c.Storage = Storage{} }},
		{"missing approver group", func(c *Config) { c.Groups.Approvers = "" }},
		{"bad temporal address", func(c *Config) { c.Temporal.HostPort = "nohostport" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
