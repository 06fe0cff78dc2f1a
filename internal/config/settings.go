package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sha1n/mcp-todo-server/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store driver constants
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Search backend constants
const (
	SearchBackendBleve         = "bleve"
	SearchBackendElasticsearch = "elasticsearch"
)

// StoreSettings configuration for the relational store
type StoreSettings struct {
	Driver string `mapstructure:"driver"` // StoreDriverPostgres or StoreDriverSQLite
	DSN    string `mapstructure:"dsn"`
}

// SearchSettings configuration for the search index
type SearchSettings struct {
	Backend         string   `mapstructure:"backend"` // SearchBackendBleve or SearchBackendElasticsearch
	Index           string   `mapstructure:"index"`
	Path            string   `mapstructure:"path"` // bleve only; empty keeps the index in memory
	Addresses       []string `mapstructure:"addresses"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	MaxResults      int      `mapstructure:"max_results"`
	RetryOnConflict int      `mapstructure:"retry_on_conflict"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	Store     StoreSettings  `mapstructure:"store"`
	Search    SearchSettings `mapstructure:"search"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)

	// Store defaults
	v.SetDefault("store.driver", StoreDriverSQLite)
	v.SetDefault("store.dsn", defaultSQLiteDSN())

	// Search defaults
	v.SetDefault("search.backend", SearchBackendBleve)
	v.SetDefault("search.index", domain.IndexName)
	v.SetDefault("search.path", "")
	v.SetDefault("search.max_results", 100)
	v.SetDefault("search.retry_on_conflict", 5)

	// Environment variables
	v.SetEnvPrefix("TODO_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("store.driver", "TODO_MCP_STORE_DRIVER")
	_ = v.BindEnv("store.dsn", "TODO_MCP_STORE_DSN")
	_ = v.BindEnv("search.backend", "TODO_MCP_SEARCH_BACKEND")
	_ = v.BindEnv("search.index", "TODO_MCP_SEARCH_INDEX")
	_ = v.BindEnv("search.path", "TODO_MCP_SEARCH_PATH")
	_ = v.BindEnv("search.addresses", "TODO_MCP_SEARCH_ADDRESSES")
	_ = v.BindEnv("search.username", "TODO_MCP_SEARCH_USERNAME")
	_ = v.BindEnv("search.password", "TODO_MCP_SEARCH_PASSWORD")
	_ = v.BindEnv("search.max_results", "TODO_MCP_SEARCH_MAX_RESULTS")
	_ = v.BindEnv("search.retry_on_conflict", "TODO_MCP_SEARCH_RETRY_ON_CONFLICT")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("store.driver", flags.Lookup("store-driver"))
		_ = v.BindPFlag("store.dsn", flags.Lookup("store-dsn"))
		_ = v.BindPFlag("search.backend", flags.Lookup("search-backend"))
		_ = v.BindPFlag("search.index", flags.Lookup("search-index"))
		_ = v.BindPFlag("search.path", flags.Lookup("search-path"))
		_ = v.BindPFlag("search.addresses", flags.Lookup("search-addresses"))
		_ = v.BindPFlag("search.username", flags.Lookup("search-username"))
		_ = v.BindPFlag("search.password", flags.Lookup("search-password"))
		_ = v.BindPFlag("search.max_results", flags.Lookup("search-max-results"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of addresses if provided via env var as comma-separated string
	addressesEnv := os.Getenv("TODO_MCP_SEARCH_ADDRESSES")
	if addressesEnv != "" {
		if len(settings.Search.Addresses) == 0 || (len(settings.Search.Addresses) == 1 && strings.Contains(settings.Search.Addresses[0], ",")) {
			settings.Search.Addresses = strings.Split(addressesEnv, ",")
		}
	}

	for i := range settings.Search.Addresses {
		settings.Search.Addresses[i] = strings.TrimSpace(settings.Search.Addresses[i])
	}
	settings.Search.Addresses = filterEmptyStrings(settings.Search.Addresses)

	// Expand home directory in the bleve path
	settings.Search.Path = expandHomeDir(settings.Search.Path)

	return &settings, nil
}

// defaultSQLiteDSN returns the default sqlite database file
func defaultSQLiteDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "todo-mcp.db"
	}
	return filepath.Join(home, ".todo-mcp", "todo.db")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting or incomplete configurations.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if err := validateStoreSettings(&s.Store); err != nil {
		return err
	}

	return validateSearchSettings(&s.Search)
}

// validateStoreSettings validates the relational store configuration
func validateStoreSettings(st *StoreSettings) error {
	switch st.Driver {
	case StoreDriverPostgres, StoreDriverSQLite:
		// valid
	default:
		return errors.New("store-driver must be 'postgres' or 'sqlite', got: " + st.Driver)
	}

	if st.DSN == "" {
		return errors.New("store-dsn cannot be empty")
	}

	return nil
}

// validateSearchSettings validates the search index configuration
func validateSearchSettings(se *SearchSettings) error {
	if se.Index == "" {
		return errors.New("search-index cannot be empty")
	}

	if se.MaxResults <= 0 {
		return errors.New("search-max-results must be positive")
	}

	switch se.Backend {
	case SearchBackendBleve:
		if len(se.Addresses) > 0 {
			return errors.New("search-backend 'bleve' is incompatible with search-addresses")
		}
	case SearchBackendElasticsearch:
		if len(se.Addresses) == 0 {
			return errors.New("search-backend 'elasticsearch' requires at least one address (search-addresses)")
		}
		if se.Path != "" {
			return errors.New("search-backend 'elasticsearch' is incompatible with search-path")
		}
		if se.RetryOnConflict < 0 {
			return errors.New("search-retry-on-conflict cannot be negative")
		}
	default:
		return errors.New("unknown search-backend: " + se.Backend)
	}

	return nil
}
