package secrets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/arwahdevops/vaultprovider/internal/config"
	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
	"github.com/arwahdevops/vaultprovider/internal/logger"
)

const appRoleLoginPath = "auth/approle/login"

var _ Client = (*VaultClient)(nil)

// constantBackoff waits the configured retry interval before every attempt.
var constantBackoff retryablehttp.Backoff = func(min, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return min
}

// VaultClient implements Client on top of the official Vault API client.
// Retries for 5xx responses and connection errors are handled by the API client.
type VaultClient struct {
	client *vault.Client
	conn   Connection
	logger *zap.Logger
}

// NewVaultClientFactory returns a ClientFactory producing VaultClients.
func NewVaultClientFactory(baseLogger *zap.Logger) ClientFactory {
	return func(conn Connection) (Client, error) {
		client, err := NewVaultClient(conn, baseLogger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func NewVaultClient(conn Connection, baseLogger *zap.Logger) (*VaultClient, error) {
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}
	log := baseLogger.Named("vault-client")
	log.Debug("Initializing Vault client", zap.Object("connection", conn))

	vConfig := vault.DefaultConfig()
	if vConfig.Error != nil {
		return nil, &vcerrors.ConfigurationError{Message: "exception thrown while reading Vault environment", Err: vConfig.Error}
	}
	vConfig.Address = conn.Address
	vConfig.MaxRetries = conn.MaxRetries
	vConfig.MinRetryWait = conn.RetryInterval
	vConfig.MaxRetryWait = conn.RetryInterval
	vConfig.Backoff = constantBackoff
	vConfig.Logger = logger.NewRetryLogger(log)

	// Verification is always set explicitly, never left to VAULT_SKIP_VERIFY.
	tlsConfig := &vault.TLSConfig{
		Insecure: !conn.TLSVerify,
	}
	if err := vConfig.ConfigureTLS(tlsConfig); err != nil {
		return nil, &vcerrors.ConfigurationError{Key: config.SSLVerifyKey, Message: "exception thrown while configuring ssl", Err: err}
	}

	client, err := vault.NewClient(vConfig)
	if err != nil {
		return nil, &vcerrors.ConfigurationError{Key: config.AddressKey, Message: "exception thrown while configuring vault", Err: err}
	}

	// NewClient picks up VAULT_TOKEN and VAULT_NAMESPACE on its own; only the
	// resolved connection counts.
	client.ClearToken()
	client.ClearNamespace()
	if conn.Token != "" {
		client.SetToken(conn.Token.Value())
	}
	if conn.Namespace != "" {
		client.SetNamespace(conn.Namespace)
	}

	return &VaultClient{
		client: client,
		conn:   conn,
		logger: log,
	}, nil
}

// Connection returns the connection the client is bound to.
func (c *VaultClient) Connection() Connection { return c.conn }

func (c *VaultClient) LookupSelf(ctx context.Context) (*TokenInfo, error) {
	secret, err := c.client.Auth().Token().LookupSelfWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("token lookup-self failed: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("token lookup-self returned no data")
	}

	renewable, err := secret.TokenIsRenewable()
	if err != nil {
		return nil, fmt.Errorf("unable to read 'renewable' from lookup-self: %w", err)
	}
	policies, err := secret.TokenPolicies()
	if err != nil {
		return nil, fmt.Errorf("unable to read 'policies' from lookup-self: %w", err)
	}
	ttl, err := secret.TokenTTL()
	if err != nil {
		return nil, fmt.Errorf("unable to read 'ttl' from lookup-self: %w", err)
	}

	return &TokenInfo{
		DisplayName: stringField(secret.Data, "display_name"),
		Path:        stringField(secret.Data, "path"),
		EntityID:    stringField(secret.Data, "entity_id"),
		Policies:    policies,
		Renewable:   renewable,
		TTL:         ttl,
	}, nil
}

func (c *VaultClient) LoginByRoleAndSecret(ctx context.Context, roleID, secretID string) (*LoginResult, error) {
	secret, err := c.client.Logical().WriteWithContext(ctx, appRoleLoginPath, map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("approle login failed: %w", err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return nil, fmt.Errorf("approle login returned no client token")
	}

	return &LoginResult{
		ClientToken:   secret.Auth.ClientToken,
		Accessor:      secret.Auth.Accessor,
		Policies:      secret.Auth.Policies,
		Renewable:     secret.Auth.Renewable,
		LeaseDuration: time.Duration(secret.Auth.LeaseDuration) * time.Second,
	}, nil
}

func (c *VaultClient) Read(ctx context.Context, path string) (*ReadResponse, error) {
	fullPath := c.conn.ResolvePath(path)
	log := c.logger.With(zap.String("vault_path", fullPath))

	// For statuses >= 400 the API client returns both a response and an error;
	// the response carries everything needed to report the failure.
	resp, err := c.client.Logical().ReadRawWithContext(ctx, fullPath)
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("no response received")
		}
		return nil, fmt.Errorf("failed to read '%s' from Vault: %w", fullPath, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for '%s': %w", fullPath, err)
	}

	result := &ReadResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	if resp.StatusCode != http.StatusOK {
		log.Debug("Vault returned non-200 status", zap.Int("status", resp.StatusCode))
		return result, nil
	}

	secret, err := vault.ParseSecret(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse secret at '%s': %w", fullPath, err)
	}
	if secret == nil {
		result.Data = map[string]string{}
		return result, nil
	}

	result.Data = stringifyData(unwrapKVv2(secret.Data))
	result.LeaseDuration = time.Duration(secret.LeaseDuration) * time.Second
	log.Debug("Read secret from Vault",
		zap.Int("keys", len(result.Data)),
		zap.Duration("lease_duration", result.LeaseDuration),
		zap.Bool("renewable", secret.Renewable))
	return result, nil
}

// unwrapKVv2 returns the inner map of a KV v2 payload ({"data": {...}, "metadata": {...}}).
// Any other shape is returned unchanged.
func unwrapKVv2(data map[string]interface{}) map[string]interface{} {
	if len(data) != 2 {
		return data
	}
	inner, hasData := data["data"]
	metadata, hasMetadata := data["metadata"]
	if !hasData || !hasMetadata {
		return data
	}
	if _, ok := metadata.(map[string]interface{}); !ok && metadata != nil {
		return data
	}
	switch v := inner.(type) {
	case map[string]interface{}:
		return v
	case nil:
		// Deleted or destroyed version.
		return map[string]interface{}{}
	}
	return data
}

// stringifyData renders non-string values as JSON text.
func stringifyData(data map[string]interface{}) map[string]string {
	result := make(map[string]string, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case string:
			result[key] = v
		case nil:
			result[key] = ""
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				result[key] = fmt.Sprint(v)
				continue
			}
			result[key] = string(encoded)
		}
	}
	return result
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
