package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig             `json:"server" yaml:"server" toml:"server"`
	Services  map[string]ServiceConfig `json:"services" yaml:"services" toml:"services"`
	Downloads DownloadConfig           `json:"downloads" yaml:"downloads" toml:"downloads"`
	Logging   LoggingConfig            `json:"logging" yaml:"logging" toml:"logging"`
	Packs     PackConfig               `json:"packs" yaml:"packs" toml:"packs"`
}

// ServerConfig holds transport-related configuration
type ServerConfig struct {
	HTTPMode  bool   `json:"http_mode" yaml:"http_mode" toml:"http_mode"`
	Port      string `json:"port" yaml:"port" toml:"port"`
	AdminPort string `json:"admin_port" yaml:"admin_port" toml:"admin_port"`
}

// ServiceConfig holds the API key and URL of one remote service
type ServiceConfig struct {
	APIKey string `json:"api_key" yaml:"api_key" toml:"api_key"`
	APIURL string `json:"api_url" yaml:"api_url" toml:"api_url"`
}

// DownloadConfig holds asset download configuration
type DownloadConfig struct {
	Directory string `json:"directory" yaml:"directory" toml:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
}

// PackConfig holds tool pack configuration
type PackConfig struct {
	Enabled    []string `json:"enabled" yaml:"enabled" toml:"enabled"`
	CatalogURL string   `json:"catalog_url" yaml:"catalog_url" toml:"catalog_url"`
}

// Service names used across the handler packages.
const (
	ServiceOpenWeather      = "weather"
	ServicePlanetary        = "planetary_computer"
	ServicePlanetarySigning = "planetary_computer_sas"
	ServiceGeoAdminSTAC     = "geoadmin_stac"
	ServiceGeoAdminIdentify = "geoadmin_identify"
	ServiceGeoAdminWMS      = "geoadmin_wms"
	ServiceGeoBON           = "geobon_stac"
)

// Service returns the named service entry. Unknown names return a zero
// value so callers can apply their own defaults.
func (c Config) Service(name string) ServiceConfig {
	if c.Services == nil {
		return ServiceConfig{}
	}
	return c.Services[name]
}

// ServiceURL returns the configured URL for a service, or fallback when
// the service carries none.
func (c Config) ServiceURL(name, fallback string) string {
	if url := c.Service(name).APIURL; url != "" {
		return url
	}
	return fallback
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPMode: false,
			Port:     "8086",
		},
		Services: map[string]ServiceConfig{
			ServicePlanetary:        {APIURL: "https://planetarycomputer.microsoft.com/api/stac/v1"},
			ServicePlanetarySigning: {APIURL: "https://planetarycomputer.microsoft.com/api/sas/v1/sign"},
			ServiceGeoAdminSTAC:     {APIURL: "https://data.geo.admin.ch/api/stac/v1"},
			ServiceGeoAdminIdentify: {APIURL: "https://api3.geo.admin.ch/rest/services/api/MapServer/identify"},
			ServiceGeoAdminWMS:      {APIURL: "https://wms.geo.admin.ch/"},
			ServiceGeoBON:           {APIURL: "https://stac.geobon.org"},
			ServiceOpenWeather:      {APIURL: "https://api.openweathermap.org/data/2.5/weather"},
		},
		Downloads: DownloadConfig{
			Directory: "downloads",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
		},
		Packs: DefaultPackConfig(),
	}
}

// DefaultPackConfig returns default tool pack configuration
func DefaultPackConfig() PackConfig {
	return PackConfig{
		Enabled: []string{"basic", "planetary", "bafu", "geobon"},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	// Load from config file if specified
	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Load environment-specific overrides
	if err := loadEnvironmentConfig(&config); err != nil {
		return config, fmt.Errorf("failed to load environment config: %w", err)
	}

	// Validate configuration
	if err := ValidateConfig(config); err != nil {
		return config, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFile loads configuration from a JSON, YAML, or TOML file.
// TOML is selected by extension; anything else tries JSON first and
// falls back to YAML.
func loadConfigFile(configPath string, config *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	if ext := strings.ToLower(filepath.Ext(configPath)); ext == ".toml" {
		if err := toml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse config as TOML: %v", err)
		}
		return nil
	}

	// Try JSON first
	if err := json.Unmarshal(data, config); err != nil {
		// Try YAML
		if yamlErr := yaml.Unmarshal(data, config); yamlErr != nil {
			return fmt.Errorf("failed to parse config as JSON or YAML: %v, %v", err, yamlErr)
		}
	}

	return nil
}

// loadEnvironmentConfig loads configuration overrides from environment variables
func loadEnvironmentConfig(config *Config) error {
	// Server configuration
	if port := os.Getenv("GEOSTAC_HTTP_PORT"); port != "" {
		config.Server.Port = port
	}
	if adminPort := os.Getenv("GEOSTAC_ADMIN_PORT"); adminPort != "" {
		config.Server.AdminPort = adminPort
	}

	// Download directory
	if dir := os.Getenv("GEOSTAC_DOWNLOAD_DIRECTORY"); dir != "" {
		config.Downloads.Directory = dir
	}

	// Logging configuration
	if logLevel := os.Getenv("GEOSTAC_LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("GEOSTAC_LOG_FORMAT"); logFormat != "" {
		config.Logging.Format = logFormat
	}
	if logFile := os.Getenv("GEOSTAC_LOG_FILE"); logFile != "" {
		config.Logging.File = logFile
	}

	// Tool pack catalog
	if catalogURL := os.Getenv("GEOSTAC_PACK_CATALOG_URL"); catalogURL != "" {
		config.Packs.CatalogURL = catalogURL
	}

	// Per-service API key overrides, e.g. GEOSTAC_OPENWEATHER_API_KEY
	for name := range config.Services {
		envKey := "GEOSTAC_" + strings.ToUpper(name) + "_API_KEY"
		if key := os.Getenv(envKey); key != "" {
			service := config.Services[name]
			service.APIKey = key
			config.Services[name] = service
		}
	}

	return nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config Config) error {
	// Validate port
	if config.Server.Port != "" {
		if port, err := strconv.Atoi(config.Server.Port); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid server port: %s", config.Server.Port)
		}
	}

	// Validate admin port when enabled
	if config.Server.AdminPort != "" {
		if port, err := strconv.Atoi(config.Server.AdminPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid admin port: %s", config.Server.AdminPort)
		}
	}

	// Downloads need somewhere to go; the directory is created on demand
	if config.Downloads.Directory == "" {
		return fmt.Errorf("downloads directory must be configured")
	}

	// Validate log level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	// Validate log format
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	return nil
}

// mergeConfigs merges two configurations (for future use with multiple config files)
func mergeConfigs(base, override Config) Config {
	result := base

	// Merge server config
	if override.Server.Port != "" {
		result.Server.Port = override.Server.Port
	}
	if override.Server.AdminPort != "" {
		result.Server.AdminPort = override.Server.AdminPort
	}
	if override.Server.HTTPMode {
		result.Server.HTTPMode = override.Server.HTTPMode
	}

	// Merge service entries key by key
	if len(override.Services) > 0 {
		if result.Services == nil {
			result.Services = make(map[string]ServiceConfig, len(override.Services))
		}
		for name, service := range override.Services {
			merged := result.Services[name]
			if service.APIKey != "" {
				merged.APIKey = service.APIKey
			}
			if service.APIURL != "" {
				merged.APIURL = service.APIURL
			}
			result.Services[name] = merged
		}
	}

	// Merge download config
	if override.Downloads.Directory != "" {
		result.Downloads.Directory = override.Downloads.Directory
	}

	// Merge logging config
	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}
	if override.Logging.File != "" {
		result.Logging.File = override.Logging.File
	}

	// Merge pack config
	if len(override.Packs.Enabled) > 0 {
		result.Packs.Enabled = override.Packs.Enabled
	}
	if override.Packs.CatalogURL != "" {
		result.Packs.CatalogURL = override.Packs.CatalogURL
	}

	return result
}
