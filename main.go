// main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arwahdevops/vaultprovider/internal/config"
	"github.com/arwahdevops/vaultprovider/internal/logger"
	"github.com/arwahdevops/vaultprovider/internal/metrics"
	"github.com/arwahdevops/vaultprovider/internal/provider"
	"github.com/arwahdevops/vaultprovider/internal/server"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

type getOptions struct {
	settingsFile string
	set          []string
	output       string
	watch        bool
	serve        bool
}

// getOutput is what the get command prints for one read.
type getOutput struct {
	Path  string            `json:"path" yaml:"path"`
	Data  map[string]string `json:"data" yaml:"data"`
	TTLMs int64             `json:"ttl_ms" yaml:"ttl_ms"`
}

func main() {
	// 1. Load environment variables (.env overrides)
	if err := godotenv.Overload(".env"); err != nil && !os.IsNotExist(err) {
		stdlog.Printf("Warning: Could not load .env file: %v. Relying on environment variables.\n", err)
	}

	// 2. Host configuration, needed before the logger exists
	hostCfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Configuration loading error from environment: %v", err)
	}

	// 3. Initialize Zap logger
	if err := logger.Init(hostCfg.DebugMode, hostCfg.EnableJsonLogging); err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}

	// 4. Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	if err := newRootCommand(hostCfg, logger.Log).ExecuteContext(ctx); err != nil {
		logger.Log.Error("Command failed", zap.Error(err))
		exitCode = 1
	}

	stop()
	_ = logger.Log.Sync()
	os.Exit(exitCode)
}

func newRootCommand(hostCfg *config.HostConfig, log *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "vaultprovider",
		Short:         "Read configuration values from HashiCorp Vault",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGetCommand(hostCfg, log), newSchemaCommand())
	return root
}

func newGetCommand(hostCfg *config.HostConfig, log *zap.Logger) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get PATH [KEY...]",
		Short: "Authenticate to Vault and print the secret at PATH",
		Long: "Authenticate to Vault and print the secret at PATH, optionally restricted to KEYs.\n" +
			"Settings are read from --settings (or VAULT_PROVIDER_SETTINGS_FILE) and then --set key=value.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.settingsFile == "" {
				opts.settingsFile = hostCfg.SettingsFile
			}
			return runGet(cmd.Context(), cmd.OutOrStdout(), hostCfg, log, opts, args[0], args[1:])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.settingsFile, "settings", "", "YAML file with provider settings (flat key: value map)")
	flags.StringArrayVar(&opts.set, "set", nil, "Provider setting as key=value; repeatable, overrides --settings")
	flags.StringVarP(&opts.output, "output", "o", outputJSON, "Output format: json or yaml")
	flags.BoolVar(&opts.watch, "watch", false, "Read again each time the reported TTL elapses, until interrupted")
	flags.BoolVar(&opts.serve, "serve", false, "Serve /metrics, /healthz, /readyz and /schema while running")
	return cmd
}

func newSchemaCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the provider settings schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeResult(cmd.OutOrStdout(), output, provider.ConfigSchema())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputYAML, "Output format: json or yaml")
	return cmd
}

func runGet(ctx context.Context, out io.Writer, hostCfg *config.HostConfig, log *zap.Logger, opts *getOptions, path string, keys []string) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}

	overrides, err := parseSetFlags(opts.set)
	if err != nil {
		return err
	}
	settings, err := loadProviderSettings(opts.settingsFile, overrides)
	if err != nil {
		return err
	}

	metricsStore := metrics.NewMetricsStore()
	p := provider.New(provider.WithLogger(log), provider.WithMetrics(metricsStore))
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("Error closing provider", zap.Error(err))
		}
	}()

	serveDone := make(chan struct{})
	serveCtx, stopServe := context.WithCancel(ctx)
	defer func() {
		stopServe()
		if opts.serve {
			<-serveDone
		}
	}()
	if opts.serve {
		go func() {
			defer close(serveDone)
			server.RunHTTPServer(serveCtx, hostCfg, metricsStore, p, log)
		}()
	}

	if err := p.Configure(ctx, settings); err != nil {
		return err
	}

	fetch := func(ctx context.Context) (*provider.ConfigData, error) {
		getCtx, cancel := context.WithTimeout(ctx, hostCfg.GetTimeout)
		defer cancel()
		return p.Get(getCtx, path, keys...)
	}
	emit := func(data *provider.ConfigData) error {
		return writeResult(out, opts.output, getOutput{Path: path, Data: data.Data, TTLMs: data.TTLMillis()})
	}

	if opts.watch {
		return watch(ctx, log, fetch, emit, p.MinimumSecretTTL())
	}

	data, err := fetch(ctx)
	if err != nil {
		return err
	}
	if err := emit(data); err != nil {
		return err
	}

	if opts.serve {
		log.Info("Read completed. Serving until shutdown signal (Ctrl+C or SIGTERM)...")
		<-ctx.Done()
	}
	return nil
}

// watch reads, emits and sleeps for the reported TTL until ctx is cancelled.
// A failed read is retried after retryAfter.
func watch(
	ctx context.Context,
	log *zap.Logger,
	fetch func(context.Context) (*provider.ConfigData, error),
	emit func(*provider.ConfigData) error,
	retryAfter time.Duration,
) error {
	for {
		wait := retryAfter
		data, err := fetch(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			log.Warn("Read failed, retrying", zap.Error(err), zap.Duration("retry_after", retryAfter))
		default:
			if err := emit(data); err != nil {
				return err
			}
			wait = data.TTL
			log.Debug("Waiting for TTL to elapse", zap.Duration("ttl", wait))
		}

		if ctx.Err() != nil {
			log.Info("Watch stopped")
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("Watch stopped")
			return nil
		case <-timer.C:
		}
	}
}

// loadProviderSettings merges the settings file with --set overrides.
func loadProviderSettings(path string, overrides map[string]string) (map[string]string, error) {
	settings := make(map[string]string)
	if path != "" {
		fromFile, err := config.LoadSettingsFile(path)
		if err != nil {
			return nil, err
		}
		for key, value := range fromFile {
			settings[key] = value
		}
	}
	for key, value := range overrides {
		settings[key] = value
	}
	return settings, nil
}

func parseSetFlags(values []string) (map[string]string, error) {
	result := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, found := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set value '%s': expected key=value", raw)
		}
		result[key] = value
	}
	return result, nil
}

func validateOutput(format string) error {
	switch format {
	case outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format '%s'. Valid options: %s, %s", format, outputJSON, outputYAML)
	}
}

func writeResult(out io.Writer, format string, v interface{}) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return validateOutput(format)
	}
}
