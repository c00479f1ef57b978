package cli

import (
	"os"
)

// Config holds CLI configuration
type Config struct {
	ServerAddr string
	HTTPURL    string
	Output     string
	Verbose    bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerAddr: getEnvOrDefault("TTT_SERVER", "localhost:5555"),
		HTTPURL:    getEnvOrDefault("TTT_HTTP", "http://localhost:8080"),
		Output:     "text",
		Verbose:    false,
	}
}

// secretFrom returns the flag value, falling back to TTT_SECRET
func secretFrom(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("TTT_SECRET")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
