package firewall

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-pageguard/pkg/providers"
)

// MinCredentialLength is the shortest key accepted by ValidateCredentialFormat.
const MinCredentialLength = 10

// CredentialCheck is the outcome of ValidateCredentialFormat.
type CredentialCheck struct {
	Valid  bool
	Reason string
}

var placeholderMarkers = []string{
	"your-api-key",
	"your_api_key",
	"your api key",
	"yourapikey",
	"api-key-here",
	"insert-key",
	"insert_key",
	"placeholder",
	"xxxxxxxx",
	"<api",
}

// ValidateCredentialFormat checks key against the provider's expected shape.
// It cannot tell whether the key is live.
func (f *Firewall) ValidateCredentialFormat(p providers.Provider, key string) CredentialCheck {
	spec, ok := providers.Lookup(p)
	if !ok {
		return invalidCredential(fmt.Sprintf("provider %q is not supported", string(p)))
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return invalidCredential("API key is empty")
	}
	if len(key) < MinCredentialLength {
		return invalidCredential(fmt.Sprintf("API key is shorter than %d characters", MinCredentialLength))
	}
	lower := strings.ToLower(key)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return invalidCredential("API key looks like a placeholder")
		}
	}
	if !spec.Pattern.MatchString(key) {
		return invalidCredential(fmt.Sprintf("API key does not match the expected %s format", spec.DisplayName))
	}
	return CredentialCheck{Valid: true}
}

func invalidCredential(reason string) CredentialCheck {
	return CredentialCheck{Valid: false, Reason: reason}
}
