package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
)

func TestResolveDefaults(t *testing.T) {
	settings, err := Resolve(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "", settings.Address)
	assert.Equal(t, LoginByToken, settings.LoginMethod)
	assert.Equal(t, 5, settings.MaxRetries)
	assert.Equal(t, 2000, settings.RetryIntervalMs)
	assert.Equal(t, 2*time.Second, settings.RetryInterval())
	assert.True(t, settings.TLSVerify)
	assert.Equal(t, int64(1000), settings.MinimumSecretTTLMs)
	assert.Equal(t, time.Second, settings.MinimumSecretTTL())
}

func TestResolveExplicitValues(t *testing.T) {
	settings, err := Resolve(map[string]string{
		AddressKey:          "https://vault.example.com",
		LoginByKey:          "approle",
		TokenKey:            "s.token",
		RoleIDKey:           "role-1",
		SecretIDKey:         "secret-1",
		NamespaceKey:        "team-a",
		PrefixKey:           "staging",
		MaxRetriesKey:       "0",
		RetryIntervalKey:    "250",
		SSLVerifyKey:        "false",
		MinimumSecretTTLKey: "60000",
		"unknown.key":       "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://vault.example.com", settings.Address)
	assert.Equal(t, LoginByAppRole, settings.LoginMethod)
	assert.Equal(t, "s.token", settings.Token.Value())
	assert.Equal(t, "role-1", settings.RoleID)
	assert.Equal(t, "secret-1", settings.SecretID.Value())
	assert.Equal(t, "team-a", settings.Namespace)
	assert.Equal(t, "staging", settings.Prefix)
	assert.Equal(t, 0, settings.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, settings.RetryInterval())
	assert.False(t, settings.TLSVerify)
	assert.Equal(t, time.Minute, settings.MinimumSecretTTL())
}

func TestResolveErrors(t *testing.T) {
	testCases := []struct {
		name  string
		raw   map[string]string
		key   string
	}{
		{"Non-numeric Retries", map[string]string{MaxRetriesKey: "five"}, ""},
		{"Non-numeric Interval", map[string]string{RetryIntervalKey: "2s"}, ""},
		{"Invalid Boolean", map[string]string{SSLVerifyKey: "maybe"}, ""},
		{"Unknown Login Method", map[string]string{LoginByKey: "LDAP"}, ""},
		{"Negative Retries", map[string]string{MaxRetriesKey: "-1"}, MaxRetriesKey},
		{"Negative Interval", map[string]string{RetryIntervalKey: "-5"}, RetryIntervalKey},
		{"TTL Below Floor", map[string]string{MinimumSecretTTLKey: "999"}, MinimumSecretTTLKey},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings, err := Resolve(tc.raw)
			assert.Nil(t, settings)
			require.Error(t, err)
			assert.ErrorIs(t, err, vcerrors.ErrConfiguration)

			var cfgErr *vcerrors.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.key, cfgErr.Key)
		})
	}
}

func TestResolveTTLFloorAccepted(t *testing.T) {
	settings, err := Resolve(map[string]string{MinimumSecretTTLKey: "1000"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), settings.MinimumSecretTTLMs)
}

func TestResolveLegacyPrefixedKeys(t *testing.T) {
	settings, err := Resolve(map[string]string{
		"vault.address":     "https://legacy.example.com",
		"vault.max.retries": "3",
		"vault.prefix":      "legacy",
		PrefixKey:           "current",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://legacy.example.com", settings.Address)
	assert.Equal(t, 3, settings.MaxRetries)
	assert.Equal(t, "current", settings.Prefix, "unprefixed key must win")
}

func TestLoginMethodUnmarshalText(t *testing.T) {
	testCases := []struct {
		input    string
		expected LoginMethod
		wantErr  bool
	}{
		{"Token", LoginByToken, false},
		{"token", LoginByToken, false},
		{" AppRole ", LoginByAppRole, false},
		{"APPROLE", LoginByAppRole, false},
		{"UserPass", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			var m LoginMethod
			err := m.UnmarshalText([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, m)
		})
	}
}

func TestPasswordNeverPrints(t *testing.T) {
	p := Password("s.very-secret")

	assert.Equal(t, "s.very-secret", p.Value())
	assert.Equal(t, "[hidden]", p.String())
	assert.Equal(t, "[hidden]", fmt.Sprintf("%v", p))
	assert.Equal(t, "[hidden]", fmt.Sprintf("%#v", p))
	assert.Equal(t, "", Password("").String())

	text, err := p.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "[hidden]", string(text))
}

func TestSchemaCoversEverySetting(t *testing.T) {
	schema := Schema()
	byName := make(map[string]KeyDescriptor, len(schema))
	for _, d := range schema {
		byName[d.Name] = d
		assert.NotEmpty(t, d.Documentation, d.Name)
	}

	for _, key := range []string{
		AddressKey, LoginByKey, TokenKey, RoleIDKey, SecretIDKey, NamespaceKey,
		PrefixKey, MaxRetriesKey, RetryIntervalKey, SSLVerifyKey, MinimumSecretTTLKey,
	} {
		assert.Contains(t, byName, key)
	}

	assert.Equal(t, "5", byName[MaxRetriesKey].Default)
	assert.Equal(t, "2000", byName[RetryIntervalKey].Default)
	assert.Equal(t, "true", byName[SSLVerifyKey].Default)
	assert.Equal(t, "1000", byName[MinimumSecretTTLKey].Default)
	assert.Equal(t, "Token", byName[LoginByKey].Default)
	assert.True(t, byName[TokenKey].Secret)
	assert.True(t, byName[SecretIDKey].Secret)
	assert.False(t, byName[RoleIDKey].Secret)
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := "address: https://vault.example.com\nmax.retries: 3\nssl.verify.enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	raw, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		AddressKey:    "https://vault.example.com",
		MaxRetriesKey: "3",
		SSLVerifyKey:  "false",
	}, raw)

	settings, err := Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, settings.MaxRetries)
	assert.False(t, settings.TLSVerify)
}

func TestLoadSettingsFileRejectsNesting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address:\n  nested: true\n"), 0o600))

	_, err := LoadSettingsFile(path)
	assert.Error(t, err)
}

func TestLoadHostConfig(t *testing.T) {
	t.Setenv("METRICS_PORT", "9300")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("GET_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.MetricsPort)
	assert.True(t, cfg.DebugMode)
	assert.Equal(t, 3*time.Second, cfg.GetTimeout)

	t.Setenv("METRICS_PORT", "70000")
	_, err = Load()
	assert.Error(t, err)
}
