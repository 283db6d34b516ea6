package config

import (
	"fmt"
	"strings"
)

type Importance string

const (
	ImportanceHigh Importance = "high"
	ImportanceLow  Importance = "low"
)

// KeyDescriptor documents one recognized setting.
type KeyDescriptor struct {
	Name          string     `json:"name" yaml:"name"`
	Type          string     `json:"type" yaml:"type"`
	Default       string     `json:"default" yaml:"default"`
	Importance    Importance `json:"importance" yaml:"importance"`
	Secret        bool       `json:"secret,omitempty" yaml:"secret,omitempty"`
	Documentation string     `json:"documentation" yaml:"documentation"`
}

// Schema lists every setting understood by Resolve.
func Schema() []KeyDescriptor {
	methods := make([]string, 0, len(LoginMethods()))
	for _, m := range LoginMethods() {
		methods = append(methods, string(m))
	}

	return []KeyDescriptor{
		{
			Name: AddressKey, Type: "string", Importance: ImportanceHigh,
			Documentation: "Sets the address (URL) of the Vault server instance to which API calls should be sent. " +
				"If no address is explicitly set, the " + EnvVaultAddress + " environment variable is used. " +
				"If neither is available, configuration fails.",
		},
		{
			Name: LoginByKey, Type: "string", Default: string(LoginByToken), Importance: ImportanceHigh,
			Documentation: fmt.Sprintf("The login method to use. Valid options: %s.", strings.Join(methods, ", ")),
		},
		{
			Name: TokenKey, Type: "password", Importance: ImportanceHigh, Secret: true,
			Documentation: "Sets the token used to access Vault. If no token is explicitly set then the " +
				EnvVaultToken + " environment variable will be used.",
		},
		{
			Name: RoleIDKey, Type: "string", Importance: ImportanceHigh,
			Documentation: "Sets the role id to access Vault. Requires " + SecretIDKey + " to be set as well.",
		},
		{
			Name: SecretIDKey, Type: "password", Importance: ImportanceHigh, Secret: true,
			Documentation: "Sets the secret id to access Vault. Requires " + RoleIDKey + " to be set as well.",
		},
		{
			Name: NamespaceKey, Type: "string", Importance: ImportanceLow,
			Documentation: "Sets a global namespace to the Vault server instance, if desired.",
		},
		{
			Name: PrefixKey, Type: "string", Importance: ImportanceLow,
			Documentation: "Sets a prefix that will be added to all paths. For example `staging` or `production`, " +
				"so the same settings can be used across multiple environments.",
		},
		{
			Name: MaxRetriesKey, Type: "int", Default: "5", Importance: ImportanceLow,
			Documentation: "The number of times that API operations will be retried when a failure occurs.",
		},
		{
			Name: RetryIntervalKey, Type: "int", Default: "2000", Importance: ImportanceLow,
			Documentation: "The number of milliseconds to wait in between retries.",
		},
		{
			Name: SSLVerifyKey, Type: "boolean", Default: "true", Importance: ImportanceHigh,
			Documentation: "Flag to determine if the SSL certificate of the Vault server is verified. " +
				"Outside of development this should never be disabled.",
		},
		{
			Name: MinimumSecretTTLKey, Type: "long", Default: fmt.Sprint(MinimumSecretTTLFloor), Importance: ImportanceLow,
			Documentation: fmt.Sprintf("The minimum amount of time in milliseconds that a secret should be used when it has no lease. "+
				"Must be at least %d.", MinimumSecretTTLFloor),
		},
	}
}
