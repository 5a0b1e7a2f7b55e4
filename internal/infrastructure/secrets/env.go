package secrets

import (
	"fmt"
	"os"
	"strings"

	coresecrets "inimerge.dev/cli/internal/core/secrets"
)

// EnvResolver resolves secrets from environment variables, mainly for CI
// and headless machines where no keyring is unlocked. The variable name is
// derived from the service and account: both are upper-cased, every run of
// non-alphanumeric characters becomes a single underscore, and the two
// parts are joined with an underscore ("svc"/"db password" -> SVC_DB_PASSWORD).
type EnvResolver struct{}

// NewEnvResolver creates an environment-backed resolver.
func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

func (r *EnvResolver) Lookup(service, account string) (string, error) {
	name := VarName(service, account)
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %s: %w", name, coresecrets.ErrNotFound)
	}
	return value, nil
}

// VarName returns the environment variable consulted for a service/account
// pair.
func VarName(service, account string) string {
	return sanitize(service) + "_" + sanitize(account)
}

func sanitize(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
