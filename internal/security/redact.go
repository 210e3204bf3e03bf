package security

import (
	"strings"
)

// Redacted replaces sensitive values
const Redacted = "[REDACTED]"

// SensitiveFieldPatterns are substrings marking a configuration key as secret
var SensitiveFieldPatterns = []string{
	"api_key",
	"apikey",
	"password",
	"passwd",
	"secret",
	"token",
	"credential",
	"private_key",
	"connection_string",
}

// FilterSensitiveSettings masks values whose keys look sensitive
func FilterSensitiveSettings(settings map[string]string) map[string]string {
	if settings == nil {
		return nil
	}

	filtered := make(map[string]string, len(settings))
	for key, value := range settings {
		if IsSensitiveField(key) && value != "" {
			filtered[key] = Redacted
		} else {
			filtered[key] = value
		}
	}
	return filtered
}

// FilterSensitiveFields masks sensitive keys in any map, recursing into nested maps
func FilterSensitiveFields(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}

	filtered := make(map[string]interface{}, len(data))
	for key, value := range data {
		if IsSensitiveField(key) {
			filtered[key] = Redacted
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			filtered[key] = FilterSensitiveFields(nested)
		} else {
			filtered[key] = value
		}
	}
	return filtered
}

// IsSensitiveField checks if a field name contains a sensitive pattern
func IsSensitiveField(fieldName string) bool {
	fieldLower := strings.ToLower(fieldName)
	for _, pattern := range SensitiveFieldPatterns {
		if strings.Contains(fieldLower, pattern) {
			return true
		}
	}
	return false
}
