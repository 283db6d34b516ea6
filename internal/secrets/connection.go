package secrets

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/arwahdevops/vaultprovider/internal/config"
	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
)

// Connection holds everything needed to bind a Vault client. It is a value type:
// a new token produces a new Connection via WithToken, the original is untouched.
type Connection struct {
	Address       string
	Namespace     string
	Prefix        string
	TLSVerify     bool
	Token         config.Password
	MaxRetries    int
	RetryInterval time.Duration
}

// BuildConnection applies, per field, the explicit setting, then the environment
// variable, then the backend default. Address has no usable backend default.
func BuildConnection(settings *config.Settings, env config.EnvironmentLookup) (Connection, error) {
	if env == nil {
		env = config.OSEnvironment{}
	}

	address := firstNonEmpty(settings.Address, lookup(env, config.EnvVaultAddress))
	if address == "" {
		return Connection{}, &vcerrors.ConfigurationError{
			Key:     config.AddressKey,
			Message: fmt.Sprintf("no Vault address set; set '%s' or the %s environment variable", config.AddressKey, config.EnvVaultAddress),
		}
	}
	if err := validateAddress(address); err != nil {
		return Connection{}, &vcerrors.ConfigurationError{Key: config.AddressKey, Message: "exception thrown while configuring vault", Err: err}
	}

	token := firstNonEmpty(settings.Token.Value(), lookup(env, config.EnvVaultToken))

	return Connection{
		Address:       address,
		Namespace:     settings.Namespace,
		Prefix:        strings.Trim(settings.Prefix, "/"),
		TLSVerify:     settings.TLSVerify,
		Token:         config.Password(token),
		MaxRetries:    settings.MaxRetries,
		RetryInterval: settings.RetryInterval(),
	}, nil
}

// WithToken returns a copy of c that authenticates with token. No other field changes.
func (c Connection) WithToken(token string) Connection {
	c.Token = config.Password(token)
	return c
}

// ResolvePath joins the configured prefix in front of a read path.
func (c Connection) ResolvePath(path string) string {
	path = strings.Trim(path, "/")
	if c.Prefix == "" {
		return path
	}
	return c.Prefix + "/" + path
}

// MarshalLogObject renders the connection for zap without the token.
func (c Connection) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("address", c.Address)
	if c.Namespace != "" {
		enc.AddString("namespace", c.Namespace)
	}
	if c.Prefix != "" {
		enc.AddString("prefix", c.Prefix)
	}
	enc.AddBool("tls_verify", c.TLSVerify)
	enc.AddBool("token_present", c.Token != "")
	enc.AddInt("max_retries", c.MaxRetries)
	enc.AddDuration("retry_interval", c.RetryInterval)
	return nil
}

func validateAddress(address string) error {
	u, err := url.Parse(address)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("address '%s' must use http or https", address)
	}
	if u.Host == "" {
		return fmt.Errorf("address '%s' has no host", address)
	}
	return nil
}

func lookup(env config.EnvironmentLookup, key string) string {
	value, _ := env.LookupEnv(key)
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
