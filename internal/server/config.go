package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
	Database string `hcl:"database,optional"`  // sqlite path, empty for in-memory
	AuditDir string `hcl:"audit_dir,optional"` // completed-hand trail, empty disables
}

// TableConfig defines a poker table configuration
type TableConfig struct {
	Name                 string `hcl:"name,label"`
	MaxPlayers           int    `hcl:"max_players,optional"`
	SmallBlind           int    `hcl:"small_blind"`
	BigBlind             int    `hcl:"big_blind"`
	StartingStack        int    `hcl:"starting_stack,optional"`
	ActionTimeoutSeconds int    `hcl:"action_timeout_seconds,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			LogFile:  "holdemd.log",
		},
		Tables: []TableConfig{
			{
				Name:                 "main",
				MaxPlayers:           6,
				SmallBlind:           1,
				BigBlind:             2,
				StartingStack:        200,
				ActionTimeoutSeconds: 30,
			},
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.LogFile == "" {
		config.Server.LogFile = "holdemd.log"
	}

	// Apply defaults to tables
	for i := range config.Tables {
		if config.Tables[i].MaxPlayers == 0 {
			config.Tables[i].MaxPlayers = 6
		}
		if config.Tables[i].StartingStack == 0 {
			config.Tables[i].StartingStack = config.Tables[i].BigBlind * 100
		}
		if config.Tables[i].ActionTimeoutSeconds == 0 {
			config.Tables[i].ActionTimeoutSeconds = 30
		}
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	seen := map[string]bool{}
	for _, table := range c.Tables {
		if seen[table.Name] {
			return fmt.Errorf("duplicate table name: %s", table.Name)
		}
		seen[table.Name] = true

		if table.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.BigBlind <= table.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", table.Name)
		}
		if table.MaxPlayers < 2 || table.MaxPlayers > 10 {
			return fmt.Errorf("table %s: max players must be between 2 and 10", table.Name)
		}
		if table.StartingStack < table.BigBlind {
			return fmt.Errorf("table %s: starting stack must cover the big blind", table.Name)
		}
		if table.ActionTimeoutSeconds < 1 {
			return fmt.Errorf("table %s: action timeout must be at least one second", table.Name)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GetTableByName returns a table configuration by name
func (c *ServerConfig) GetTableByName(name string) *TableConfig {
	for _, table := range c.Tables {
		if table.Name == name {
			return &table
		}
	}
	return nil
}
