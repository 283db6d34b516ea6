// Package auth maps login methods to the handlers that establish a Vault session.
package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arwahdevops/vaultprovider/internal/config"
	vcerrors "github.com/arwahdevops/vaultprovider/internal/errors"
	"github.com/arwahdevops/vaultprovider/internal/secrets"
)

// Outcome is the result of a successful authentication. Connection is the one
// to use for reads and may carry a freshly issued token.
type Outcome struct {
	Renewable  bool
	Connection secrets.Connection
}

// Handler authenticates with one or more login methods.
type Handler interface {
	Supports() []config.LoginMethod
	Authenticate(ctx context.Context, settings *config.Settings, conn secrets.Connection, client secrets.Client) (*Outcome, error)
}

// Registry is a fixed mapping from login method to handler.
type Registry struct {
	handlers map[config.LoginMethod]Handler
}

// NewRegistry fails if two handlers claim the same login method.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	result := make(map[config.LoginMethod]Handler)
	for _, handler := range handlers {
		for _, method := range handler.Supports() {
			if previous, exists := result[method]; exists {
				return nil, fmt.Errorf("'%s' is defined as supported by '%T' and '%T'. Only one can be supported",
					method, handler, previous)
			}
			result[method] = handler
		}
	}
	return &Registry{handlers: result}, nil
}

// MustNewRegistry is NewRegistry for process start-up: a duplicate claim panics.
func MustNewRegistry(handlers ...Handler) *Registry {
	r, err := NewRegistry(handlers...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry registers the Token and AppRole handlers.
func DefaultRegistry(baseLogger *zap.Logger) *Registry {
	return MustNewRegistry(
		NewTokenHandler(baseLogger),
		NewAppRoleHandler(baseLogger),
	)
}

// Handler returns the handler for method.
func (r *Registry) Handler(method config.LoginMethod) (Handler, error) {
	handler, ok := r.handlers[method]
	if !ok {
		return nil, &vcerrors.UnsupportedOperationError{Method: string(method)}
	}
	return handler, nil
}
