package tools

import (
	"fmt"
	"os"
	"strconv"
)

func GetenvDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// LookupenvInt parses a non-negative integer from the environment.
// ok is false when the variable is unset or empty.
func LookupenvInt(key string) (value int, ok bool, err error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false, nil
	}
	value, err = strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, true, fmt.Errorf("invalid %s %q: expected a non-negative integer", key, raw)
	}
	return value, true, nil
}
