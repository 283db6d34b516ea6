package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"

	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
)

// Setting keys recognized in the raw settings map.
const (
	AddressKey          = "address"
	LoginByKey          = "login.by"
	TokenKey            = "token"
	RoleIDKey           = "role.id"
	SecretIDKey         = "secret.id"
	NamespaceKey        = "namespace"
	PrefixKey           = "prefix"
	MaxRetriesKey       = "max.retries"
	RetryIntervalKey    = "retry.interval.ms"
	SSLVerifyKey        = "ssl.verify.enabled"
	MinimumSecretTTLKey = "secret.minimum.ttl.ms"

	// LegacyKeyPrefix is accepted in front of every key, e.g. "vault.address".
	LegacyKeyPrefix = "vault."

	MinimumSecretTTLFloor = 1000
)

// Settings is the typed, validated form of the raw settings map.
// It is built once by Resolve and never modified afterwards.
type Settings struct {
	Address            string      `env:"address"`
	LoginMethod        LoginMethod `env:"login.by" envDefault:"Token"`
	Token              Password    `env:"token"`
	RoleID             string      `env:"role.id"`
	SecretID           Password    `env:"secret.id"`
	Namespace          string      `env:"namespace"`
	Prefix             string      `env:"prefix"`
	MaxRetries         int         `env:"max.retries" envDefault:"5"`
	RetryIntervalMs    int         `env:"retry.interval.ms" envDefault:"2000"`
	TLSVerify          bool        `env:"ssl.verify.enabled" envDefault:"true"`
	MinimumSecretTTLMs int64       `env:"secret.minimum.ttl.ms" envDefault:"1000"`
}

// RetryInterval is the wait between two read attempts.
func (s *Settings) RetryInterval() time.Duration {
	return time.Duration(s.RetryIntervalMs) * time.Millisecond
}

// MinimumSecretTTL is the TTL reported for secrets without a lease.
func (s *Settings) MinimumSecretTTL() time.Duration {
	return time.Duration(s.MinimumSecretTTLMs) * time.Millisecond
}

// Resolve decodes a raw settings map. Unknown keys are ignored.
func Resolve(raw map[string]string) (*Settings, error) {
	settings := &Settings{}
	opts := env.Options{Environment: normalizeKeys(raw)}
	if err := env.ParseWithOptions(settings, opts); err != nil {
		return nil, &vcerrors.ConfigurationError{Message: "unable to decode settings", Err: err}
	}

	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func validateSettings(s *Settings) error {
	if s.MaxRetries < 0 {
		return &vcerrors.ConfigurationError{Key: MaxRetriesKey, Message: fmt.Sprintf("max retries cannot be negative (got %d)", s.MaxRetries)}
	}
	if s.RetryIntervalMs < 0 {
		return &vcerrors.ConfigurationError{Key: RetryIntervalKey, Message: fmt.Sprintf("retry interval cannot be negative (got %d)", s.RetryIntervalMs)}
	}
	if s.MinimumSecretTTLMs < MinimumSecretTTLFloor {
		return &vcerrors.ConfigurationError{
			Key:     MinimumSecretTTLKey,
			Message: fmt.Sprintf("value must be at least %d (got %d)", MinimumSecretTTLFloor, s.MinimumSecretTTLMs),
		}
	}
	return nil
}

// normalizeKeys strips the legacy "vault." prefix. Unprefixed keys win over prefixed ones.
func normalizeKeys(raw map[string]string) map[string]string {
	result := make(map[string]string, len(raw))
	for key, value := range raw {
		if trimmed, ok := strings.CutPrefix(key, LegacyKeyPrefix); ok {
			if _, exists := raw[trimmed]; exists {
				continue
			}
			key = trimmed
		}
		result[key] = value
	}
	return result
}
