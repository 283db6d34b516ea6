package config

import (
	"fmt"
	"strings"
)

// LoginMethod selects the auth handler used to obtain a Vault session.
type LoginMethod string

const (
	LoginByToken   LoginMethod = "Token"   // Existing token, verified with lookup-self
	LoginByAppRole LoginMethod = "AppRole" // role_id/secret_id exchanged for a new token
)

// LoginMethods lists every method the resolver accepts, in documentation order.
func LoginMethods() []LoginMethod {
	return []LoginMethod{LoginByToken, LoginByAppRole}
}

// UnmarshalText accepts the method name in any letter case.
func (m *LoginMethod) UnmarshalText(text []byte) error {
	value := strings.TrimSpace(string(text))
	for _, known := range LoginMethods() {
		if strings.EqualFold(value, string(known)) {
			*m = known
			return nil
		}
	}
	return fmt.Errorf("invalid login method '%s'. Valid options: %s, %s", value, LoginByToken, LoginByAppRole)
}

func (m LoginMethod) String() string { return string(m) }

// Password holds a secret setting. It never renders its value through fmt or zap.
type Password string

const hiddenValue = "[hidden]"

func (p *Password) UnmarshalText(text []byte) error {
	*p = Password(text)
	return nil
}

// Value returns the secret itself.
func (p Password) Value() string { return string(p) }

func (p Password) String() string {
	if p == "" {
		return ""
	}
	return hiddenValue
}

func (p Password) GoString() string { return p.String() }

func (p Password) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
