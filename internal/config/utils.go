package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func getEnv(key, defaultVal string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultVal
}

// lookupTrimmed reports a set, non-blank variable with surrounding spaces removed.
func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func getEnvAsInt(key string, defaultVal int) int {
	return parseEnv(key, defaultVal, strconv.Atoi)
}

func getEnvAsBool(key string, defaultVal bool) bool {
	return parseEnv(key, defaultVal, strconv.ParseBool)
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	return parseEnv(key, defaultVal, time.ParseDuration)
}

// parseEnv falls back to defaultVal when the variable is blank or malformed.
func parseEnv[T any](key string, defaultVal T, parse func(string) (T, error)) T {
	value, ok := lookupTrimmed(key)
	if !ok {
		return defaultVal
	}
	v, err := parse(value)
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvAsStringSlice(key string, defaults []string) []string {
	value, ok := lookupTrimmed(key)
	if !ok {
		return defaults
	}
	filtered := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return defaults
	}
	return filtered
}
