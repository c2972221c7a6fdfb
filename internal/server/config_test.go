package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holdemd.hcl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadServerConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, "main", cfg.Tables[0].Name)
	assert.Equal(t, 30, cfg.Tables[0].ActionTimeoutSeconds)
}

func TestLoadServerConfigParsesHCL(t *testing.T) {
	path := writeConfig(t, `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
  database  = "/var/lib/holdemd/hands.db"
  audit_dir = "/var/lib/holdemd/audit"
}

table "high" {
  small_blind            = 50
  big_blind              = 100
  max_players            = 9
  starting_stack         = 20000
  action_timeout_seconds = 15
}

table "low" {
  small_blind = 1
  big_blind   = 2
}
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "/var/lib/holdemd/hands.db", cfg.Server.Database)
	assert.Equal(t, "/var/lib/holdemd/audit", cfg.Server.AuditDir)

	high := cfg.GetTableByName("high")
	require.NotNil(t, high)
	assert.Equal(t, 15, high.ActionTimeoutSeconds)
	assert.Equal(t, 20000, high.StartingStack)

	// Unset table fields pick up defaults.
	low := cfg.GetTableByName("low")
	require.NotNil(t, low)
	assert.Equal(t, 6, low.MaxPlayers)
	assert.Equal(t, 200, low.StartingStack, "default is 100 big blinds")
	assert.Equal(t, 30, low.ActionTimeoutSeconds)

	assert.Nil(t, cfg.GetTableByName("absent"))
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() *ServerConfig {
		cfg := DefaultServerConfig()
		return cfg
	}

	tests := []struct {
		name  string
		mutate func(*ServerConfig)
	}{
		{"bad port", func(c *ServerConfig) { c.Server.Port = 0 }},
		{"no tables", func(c *ServerConfig) { c.Tables = nil }},
		{"zero small blind", func(c *ServerConfig) { c.Tables[0].SmallBlind = 0 }},
		{"big blind below small", func(c *ServerConfig) { c.Tables[0].BigBlind = c.Tables[0].SmallBlind }},
		{"too few seats", func(c *ServerConfig) { c.Tables[0].MaxPlayers = 1 }},
		{"stack below big blind", func(c *ServerConfig) { c.Tables[0].StartingStack = 1 }},
		{"zero timeout", func(c *ServerConfig) { c.Tables[0].ActionTimeoutSeconds = 0 }},
		{"duplicate table names", func(c *ServerConfig) { c.Tables = append(c.Tables, c.Tables[0]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
