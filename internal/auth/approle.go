package auth

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arwahdevops/vaultprovider/internal/config"
	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
	"github.com/arwahdevops/vaultprovider/internal/secrets"
)

// AppRoleHandler logs in with role.id/secret.id and binds the issued token.
type AppRoleHandler struct {
	logger *zap.Logger
}

func NewAppRoleHandler(baseLogger *zap.Logger) *AppRoleHandler {
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}
	return &AppRoleHandler{logger: baseLogger.Named("auth").With(zap.Stringer("login_by", config.LoginByAppRole))}
}

func (h *AppRoleHandler) Supports() []config.LoginMethod {
	return []config.LoginMethod{config.LoginByAppRole}
}

func (h *AppRoleHandler) Authenticate(ctx context.Context, settings *config.Settings, conn secrets.Connection, client secrets.Client) (*Outcome, error) {
	if err := validateAppRole(settings); err != nil {
		return nil, err
	}

	result, err := client.LoginByRoleAndSecret(ctx, settings.RoleID, settings.SecretID.Value())
	if err != nil {
		h.logger.Error("AppRole login failed", zap.String("role_id", settings.RoleID), zap.Error(err))
		return nil, &vcerrors.AuthenticationError{Method: string(config.LoginByAppRole), Message: "exception while authenticating to Vault", Err: err}
	}

	h.logger.Debug("approle login response",
		zap.String("accessor", result.Accessor),
		zap.Strings("policies", result.Policies),
		zap.Bool("renewable", result.Renewable),
		zap.Duration("lease_duration", result.LeaseDuration))
	h.logger.Info("Authenticated to Vault",
		zap.String("role_id", settings.RoleID),
		zap.Strings("policies", result.Policies))

	return &Outcome{
		Renewable:  result.Renewable,
		Connection: conn.WithToken(result.ClientToken),
	}, nil
}

// validateAppRole lists every missing credential instead of stopping at the first.
func validateAppRole(settings *config.Settings) error {
	var (
		missing []string
		errs    error
	)
	if settings.RoleID == "" {
		missing = append(missing, config.RoleIDKey)
		errs = multierr.Append(errs, fmt.Errorf("'%s' must be set", config.RoleIDKey))
	}
	if settings.SecretID == "" {
		missing = append(missing, config.SecretIDKey)
		errs = multierr.Append(errs, fmt.Errorf("'%s' must be set", config.SecretIDKey))
	}
	if errs == nil {
		return nil
	}
	return &vcerrors.ValidationError{Method: string(config.LoginByAppRole), Missing: missing, Err: errs}
}
