// Package provider serves secrets from Vault as key/value configuration with a
// TTL hint telling the caller when to read again.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/arwahdevops/vaultprovider/internal/auth"
	"github.com/arwahdevops/vaultprovider/internal/config"
	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
	"github.com/arwahdevops/vaultprovider/internal/metrics"
	"github.com/arwahdevops/vaultprovider/internal/secrets"
)

// State is the provider lifecycle: Unconfigured -> Authenticating -> Ready | Failed.
// Failed is terminal; a new Provider must be constructed.
type State int32

const (
	Unconfigured State = iota
	Authenticating
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Authenticating:
		return "authenticating"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ConfigData is the result of a read: the (filtered) values and how long they may be used.
// It encodes to JSON and YAML as {data, ttl_ms}.
type ConfigData struct {
	Data map[string]string
	TTL  time.Duration
}

type configDataView struct {
	Data  map[string]string `json:"data" yaml:"data"`
	TTLMs int64             `json:"ttl_ms" yaml:"ttl_ms"`
}

// TTLMillis returns the TTL in milliseconds.
func (d *ConfigData) TTLMillis() int64 { return d.TTL.Milliseconds() }

func (d ConfigData) MarshalJSON() ([]byte, error) {
	return json.Marshal(configDataView{Data: d.Data, TTLMs: d.TTLMillis()})
}

func (d ConfigData) MarshalYAML() (interface{}, error) {
	return configDataView{Data: d.Data, TTLMs: d.TTLMillis()}, nil
}

// ConfigProvider is the surface a host application depends on.
type ConfigProvider interface {
	Configure(ctx context.Context, settings map[string]string) error
	Get(ctx context.Context, path string, keys ...string) (*ConfigData, error)
	Close() error
}

var _ ConfigProvider = (*Provider)(nil)

// Provider reads secrets through an authenticated Vault client.
// Configure must be called once, before any Get. Get is safe for concurrent use.
type Provider struct {
	logger    *zap.Logger
	registry  *auth.Registry
	env       config.EnvironmentLookup
	newClient secrets.ClientFactory
	metrics   *metrics.Store

	state     atomic.Int32
	settings  *config.Settings
	client    secrets.Client
	renewable bool
}

type Option func(*Provider)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) { p.logger = logger }
}

// WithRegistry replaces the default Token/AppRole handler registry.
func WithRegistry(registry *auth.Registry) Option {
	return func(p *Provider) { p.registry = registry }
}

// WithEnvironment sets where VAULT_ADDR and VAULT_TOKEN fallbacks are looked up.
func WithEnvironment(env config.EnvironmentLookup) Option {
	return func(p *Provider) { p.env = env }
}

// WithClientFactory replaces the Vault API client, mostly for tests.
func WithClientFactory(factory secrets.ClientFactory) Option {
	return func(p *Provider) { p.newClient = factory }
}

func WithMetrics(store *metrics.Store) Option {
	return func(p *Provider) { p.metrics = store }
}

func New(opts ...Option) *Provider {
	p := &Provider{
		logger: zap.NewNop(),
		env:    config.OSEnvironment{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = auth.DefaultRegistry(p.logger)
	}
	if p.newClient == nil {
		p.newClient = secrets.NewVaultClientFactory(p.logger)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewMetricsStore()
	}
	p.logger = p.logger.Named("provider")
	return p
}

// ConfigSchema describes every recognized setting.
func ConfigSchema() []config.KeyDescriptor {
	return config.Schema()
}

func (p *Provider) State() State { return State(p.state.Load()) }

// Ready reports whether Get can be served.
func (p *Provider) Ready() bool { return p.State() == Ready }

// MinimumSecretTTL is the TTL reported for secrets without a lease. It is zero
// until the provider is Ready.
func (p *Provider) MinimumSecretTTL() time.Duration {
	if !p.Ready() {
		return 0
	}
	return p.settings.MinimumSecretTTL()
}

// Renewable reports whether the authenticated session can be renewed.
func (p *Provider) Renewable() bool { return p.Ready() && p.renewable }

func (p *Provider) setState(s State) {
	p.state.Store(int32(s))
	p.metrics.ProviderState.Set(float64(s))
}

// Configure resolves settings, authenticates and binds the client used by Get.
// Any failure leaves the provider Failed.
func (p *Provider) Configure(ctx context.Context, settings map[string]string) error {
	if !p.state.CompareAndSwap(int32(Unconfigured), int32(Authenticating)) {
		return &vcerrors.ConfigurationError{
			Message: fmt.Sprintf("provider cannot be configured in state '%s'; construct a new provider", p.State()),
		}
	}
	p.setState(Authenticating)

	if err := p.configure(ctx, settings); err != nil {
		p.setState(Failed)
		p.logger.Error("Provider configuration failed", zap.Error(err))
		return err
	}

	p.setState(Ready)
	return nil
}

func (p *Provider) configure(ctx context.Context, raw map[string]string) error {
	settings, err := config.Resolve(raw)
	if err != nil {
		return err
	}

	conn, err := secrets.BuildConnection(settings, p.env)
	if err != nil {
		return err
	}
	p.logger.Info("Configuring Vault provider",
		zap.Object("connection", conn),
		zap.Stringer("login_by", settings.LoginMethod))

	handler, err := p.registry.Handler(settings.LoginMethod)
	if err != nil {
		return err
	}

	client, err := p.newClient(conn)
	if err != nil {
		return err
	}

	outcome, err := handler.Authenticate(ctx, settings, conn, client)
	if err != nil {
		p.metrics.AuthAttemptsTotal.WithLabelValues(settings.LoginMethod.String(), "failure").Inc()
		return err
	}
	p.metrics.AuthAttemptsTotal.WithLabelValues(settings.LoginMethod.String(), "success").Inc()

	if outcome.Connection != conn {
		p.logger.Debug("Rebinding Vault client to the connection returned by authentication")
		client, err = p.newClient(outcome.Connection)
		if err != nil {
			return err
		}
	}

	p.settings = settings
	p.client = client
	p.renewable = outcome.Renewable
	p.logger.Debug("authConfig", zap.Bool("renewable", outcome.Renewable))
	return nil
}

// Get reads path and returns the entries named in keys, or every entry when keys
// is empty. The TTL is the secret's lease when positive, otherwise the configured
// minimum. Failures are per call and do not change the provider state.
func (p *Provider) Get(ctx context.Context, path string, keys ...string) (*ConfigData, error) {
	start := time.Now()
	if !p.Ready() {
		p.metrics.ObserveRead(metrics.StatusNotReady, time.Since(start))
		return nil, &vcerrors.ReadError{Path: path, Err: vcerrors.ErrNotReady}
	}

	log := p.logger.With(zap.String("path", path), zap.Strings("keys", keys))
	log.Info("get()")

	resp, err := p.client.Read(ctx, path)
	if err != nil {
		p.metrics.ObserveRead(metrics.StatusCallError, time.Since(start))
		log.Error("Failed to read secret from Vault", zap.Error(err))
		return nil, &vcerrors.ReadError{Path: path, Err: err}
	}
	p.metrics.ObserveRead(strconv.Itoa(resp.Status), time.Since(start))

	if resp.Status != http.StatusOK {
		log.Warn("Vault returned a non-200 response",
			zap.Int("status", resp.Status),
			zap.String("content_type", resp.ContentType))
		return nil, &vcerrors.ReadError{
			Path:        path,
			Status:      resp.Status,
			ContentType: resp.ContentType,
			Body:        string(resp.Body),
		}
	}

	ttl := resp.LeaseDuration
	if ttl <= 0 {
		ttl = p.settings.MinimumSecretTTL()
	}
	p.metrics.SecretTTL.Observe(ttl.Seconds())

	return &ConfigData{
		Data: filterKeys(resp.Data, keys),
		TTL:  ttl,
	}, nil
}

// Close exists for lifecycle symmetry with the host; the provider holds nothing to release.
func (p *Provider) Close() error {
	return nil
}

// filterKeys always returns a new map so callers never share the client's.
func filterKeys(data map[string]string, keys []string) map[string]string {
	if len(keys) == 0 {
		result := make(map[string]string, len(data))
		for k, v := range data {
			result[k] = v
		}
		return result
	}

	result := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := data[k]; ok {
			result[k] = v
		}
	}
	return result
}
