package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// AuditEnums represents the enum configuration for the audit trail
// All enum values are configurable via YAML so deployments can extend the
// vocabulary without a code change
type AuditEnums struct {
	Categories         []string `yaml:"categories"`
	Severities         []string `yaml:"severities"`
	Actions            []string `yaml:"actions"`
	SecurityEventTypes []string `yaml:"securityEventTypes"`

	// Maps for O(1) validation lookups (initialized from slices)
	categoriesMap         map[string]struct{}
	severitiesMap         map[string]struct{}
	actionsMap            map[string]struct{}
	securityEventTypesMap map[string]struct{}

	// initOnce ensures thread-safe lazy initialization of maps
	initOnce sync.Once
}

// Config holds the service configuration
type Config struct {
	Enums AuditEnums `yaml:"enums"`
}

var (
	// DefaultEnums provides default enum values if the config file is not found
	DefaultEnums = AuditEnums{
		Categories: []string{
			"authentication",
			"authorization",
			"data_access",
			"data_modification",
			"security",
			"system",
			"compliance",
		},
		Severities: []string{
			"info",
			"low",
			"medium",
			"high",
			"critical",
		},
		Actions: []string{
			"create",
			"update",
			"delete",
			"view",
			"export",
			"bulk_update",
			"bulk_delete",
			"permission_change",
			"login",
			"logout",
		},
		SecurityEventTypes: []string{
			"login",
			"login_failed",
			"logout",
			"permission_change",
			"access_denied",
			"password_reset",
		},
	}
)

// LoadEnums loads enum configuration from a YAML file
// If the file is not found or cannot be read, returns default enums
func LoadEnums(configPath string) (*AuditEnums, error) {
	// If no path provided, try default location
	if configPath == "" {
		configPath = "config/enums.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		// If file doesn't exist, return defaults
		if os.IsNotExist(err) {
			return GetDefaultEnums(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		slog.Warn("Failed to parse config file, using defaults", "path", configPath, "error", err)
		return GetDefaultEnums(), nil
	}

	// Use defaults for any missing enum arrays
	enums := &config.Enums
	if len(enums.Categories) == 0 {
		enums.Categories = DefaultEnums.Categories
	}
	if len(enums.Severities) == 0 {
		enums.Severities = DefaultEnums.Severities
	}
	if len(enums.Actions) == 0 {
		enums.Actions = DefaultEnums.Actions
	}
	if len(enums.SecurityEventTypes) == 0 {
		enums.SecurityEventTypes = DefaultEnums.SecurityEventTypes
	}

	// Initialize maps for O(1) validation lookups
	enums.InitializeMaps()

	return enums, nil
}

// GetDefaultEnums creates a new AuditEnums instance with default values
// Slices are copied to avoid sharing references with the global DefaultEnums
func GetDefaultEnums() *AuditEnums {
	enums := &AuditEnums{
		Categories:         append([]string(nil), DefaultEnums.Categories...),
		Severities:         append([]string(nil), DefaultEnums.Severities...),
		Actions:            append([]string(nil), DefaultEnums.Actions...),
		SecurityEventTypes: append([]string(nil), DefaultEnums.SecurityEventTypes...),
	}
	enums.InitializeMaps()
	return enums
}

// InitializeMaps converts slices to maps for O(1) validation lookups
// Uses sync.Once to ensure thread-safe initialization that happens only once
// This is called automatically by LoadEnums, but can be called manually for testing
func (e *AuditEnums) InitializeMaps() {
	e.initOnce.Do(func() {
		e.categoriesMap = make(map[string]struct{}, len(e.Categories))
		for _, c := range e.Categories {
			e.categoriesMap[c] = struct{}{}
		}

		e.severitiesMap = make(map[string]struct{}, len(e.Severities))
		for _, s := range e.Severities {
			e.severitiesMap[s] = struct{}{}
		}

		e.actionsMap = make(map[string]struct{}, len(e.Actions))
		for _, a := range e.Actions {
			e.actionsMap[a] = struct{}{}
		}

		e.securityEventTypesMap = make(map[string]struct{}, len(e.SecurityEventTypes))
		for _, t := range e.SecurityEventTypes {
			e.securityEventTypesMap[t] = struct{}{}
		}
	})
}

// IsValidCategory checks if the given audit category is valid
func (e *AuditEnums) IsValidCategory(category string) bool {
	_, exists := e.categoriesMap[category]
	return exists
}

// IsValidSeverity checks if the given severity is valid
func (e *AuditEnums) IsValidSeverity(severity string) bool {
	_, exists := e.severitiesMap[severity]
	return exists
}

// IsValidAction checks if the given action is valid
func (e *AuditEnums) IsValidAction(action string) bool {
	if action == "" {
		return true // Empty is allowed (nullable field)
	}
	_, exists := e.actionsMap[action]
	return exists
}

// IsValidSecurityEventType checks if the given security event type is valid
func (e *AuditEnums) IsValidSecurityEventType(eventType string) bool {
	_, exists := e.securityEventTypesMap[eventType]
	return exists
}

// GetEnvOrDefault returns the environment variable value or a default
// This is a utility function for reading environment variables with defaults
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
