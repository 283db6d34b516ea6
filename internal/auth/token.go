package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/arwahdevops/vaultprovider/internal/config"
	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
	"github.com/arwahdevops/vaultprovider/internal/secrets"
)

// TokenHandler verifies the configured token with a lookup-self call.
type TokenHandler struct {
	logger *zap.Logger
}

func NewTokenHandler(baseLogger *zap.Logger) *TokenHandler {
	if baseLogger == nil {
		baseLogger = zap.NewNop()
	}
	return &TokenHandler{logger: baseLogger.Named("auth").With(zap.Stringer("login_by", config.LoginByToken))}
}

func (h *TokenHandler) Supports() []config.LoginMethod {
	return []config.LoginMethod{config.LoginByToken}
}

func (h *TokenHandler) Authenticate(ctx context.Context, _ *config.Settings, conn secrets.Connection, client secrets.Client) (*Outcome, error) {
	info, err := client.LookupSelf(ctx)
	if err != nil {
		h.logger.Error("Token lookup failed", zap.Error(err))
		return nil, &vcerrors.AuthenticationError{Method: string(config.LoginByToken), Message: "exception while authenticating to Vault", Err: err}
	}

	h.logger.Debug("lookup-self response",
		zap.String("display_name", info.DisplayName),
		zap.String("path", info.Path),
		zap.String("entity_id", info.EntityID),
		zap.Strings("policies", info.Policies),
		zap.Bool("renewable", info.Renewable),
		zap.Duration("ttl", info.TTL))
	h.logger.Info("Authenticated to Vault",
		zap.String("display_name", info.DisplayName),
		zap.String("path", info.Path),
		zap.Strings("policies", info.Policies))

	return &Outcome{Renewable: info.Renewable, Connection: conn}, nil
}
