package config

import "os"

// Environment variables consulted when the matching setting is empty.
const (
	EnvVaultAddress = "VAULT_ADDR"
	EnvVaultToken   = "VAULT_TOKEN"
)

// EnvironmentLookup resolves environment variables. Tests substitute MapEnvironment.
type EnvironmentLookup interface {
	LookupEnv(key string) (string, bool)
}

// OSEnvironment reads the process environment.
type OSEnvironment struct{}

func (OSEnvironment) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// MapEnvironment is a fixed set of variables.
type MapEnvironment map[string]string

func (m MapEnvironment) LookupEnv(key string) (string, bool) {
	value, ok := m[key]
	return value, ok
}
