package config

import (
	"os"
	"strconv"
)

// Exist reports whether the environment variable is set at all.
func Exist(key string) bool {
	_, exist := os.LookupEnv(key)
	return exist
}

// GetEnv returns the string value of an environment variable.
func GetEnv(key string) string {
	val, _ := os.LookupEnv(key)
	return val
}

// GetIntEnv returns the integer value of an environment variable, 0 on parse
// failure.
func GetIntEnv(key string) int {
	val, _ := os.LookupEnv(key)
	v, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return v
}

// GetBoolEnv returns the boolean value of an environment variable, false on
// parse failure.
func GetBoolEnv(key string) bool {
	val, _ := os.LookupEnv(key)
	v, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return v
}
