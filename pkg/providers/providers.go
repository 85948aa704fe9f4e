// Package providers enumerates the language-model vendors whose API keys
// the vault stores.
package providers

import (
	"fmt"
	"regexp"
	"strings"
)

// Provider identifies a supported vendor.
type Provider string

const (
	OpenAI     Provider = "openai"
	Anthropic  Provider = "anthropic"
	Gemini     Provider = "gemini"
	OpenRouter Provider = "openrouter"
)

// Spec describes how a provider's key is named and shaped.
type Spec struct {
	Provider    Provider
	DisplayName string
	// KeyName is the vault record name ("encrypted_<KeyName>").
	KeyName string
	// Pattern is the expected key shape. It confirms format, not liveness.
	Pattern *regexp.Regexp
}

var catalog = map[Provider]Spec{
	OpenAI: {
		Provider:    OpenAI,
		DisplayName: "OpenAI",
		KeyName:     "openai_api_key",
		Pattern:     regexp.MustCompile(`^sk-(?:proj-|svcacct-)?[A-Za-z0-9_-]{20,}$`),
	},
	Anthropic: {
		Provider:    Anthropic,
		DisplayName: "Anthropic",
		KeyName:     "anthropic_api_key",
		Pattern:     regexp.MustCompile(`^sk-ant-[A-Za-z0-9_-]{20,}$`),
	},
	Gemini: {
		Provider:    Gemini,
		DisplayName: "Google Gemini",
		KeyName:     "gemini_api_key",
		Pattern:     regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`),
	},
	OpenRouter: {
		Provider:    OpenRouter,
		DisplayName: "OpenRouter",
		KeyName:     "openrouter_api_key",
		Pattern:     regexp.MustCompile(`^sk-or-(?:v1-)?[A-Za-z0-9]{20,}$`),
	},
}

// All returns the providers in a stable order.
func All() []Provider {
	return []Provider{OpenAI, Anthropic, Gemini, OpenRouter}
}

// Lookup returns the spec for p.
func Lookup(p Provider) (Spec, bool) {
	spec, ok := catalog[p]
	return spec, ok
}

// Parse maps user input ("OpenAI", " gemini ") to a Provider.
func Parse(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := catalog[p]; !ok {
		return "", fmt.Errorf("providers: unsupported provider %q", raw)
	}
	return p, nil
}

func (p Provider) String() string { return string(p) }

// Valid reports whether p is part of the catalog.
func (p Provider) Valid() bool {
	_, ok := catalog[p]
	return ok
}

// KeyName returns the vault record name, or "" for unknown providers.
func (p Provider) KeyName() string {
	return catalog[p].KeyName
}
