// Package pageguard is the entry point host integrations use: one module
// that resolves usable provider credentials and gates outbound page text.
package pageguard

import (
	"context"
	"time"

	"github.com/goliatone/go-pageguard/internal/di"
	"github.com/goliatone/go-pageguard/pkg/commands"
	"github.com/goliatone/go-pageguard/pkg/config"
	"github.com/goliatone/go-pageguard/pkg/fingerprint"
	"github.com/goliatone/go-pageguard/pkg/firewall"
	"github.com/goliatone/go-pageguard/pkg/interfaces/logger"
	"github.com/goliatone/go-pageguard/pkg/providers"
	"github.com/goliatone/go-pageguard/pkg/storage"
	"github.com/goliatone/go-pageguard/pkg/vault"
)

// ModuleOptions configure the module facade.
type ModuleOptions struct {
	Config  config.Config
	Storage storage.Providers
	// Source supplies device signals; the browser host forwards them as
	// fingerprint.Static.
	Source  fingerprint.Source
	Logger  logger.Logger
	Metrics storage.MetricsCollector
	Now     func() time.Time
}

// Module bundles the container and exposes high-level accessors.
type Module struct {
	container *di.Container
}

// NewModule assembles storage, the vault, the firewall and commands.
func NewModule(ctx context.Context, opts ModuleOptions) (*Module, error) {
	container, err := di.New(ctx, di.Options{
		Config:  opts.Config,
		Storage: opts.Storage,
		Source:  opts.Source,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
		Now:     opts.Now,
	})
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Credential returns a usable key for p, or false when none is stored or
// the stored one can no longer be decrypted on this device.
func (m *Module) Credential(ctx context.Context, p providers.Provider) (string, bool) {
	if m == nil || m.container == nil {
		return "", false
	}
	return m.container.Vault.RetrieveFor(ctx, p)
}

// Sanitize gates content bound for destination under identifier's budget.
func (m *Module) Sanitize(ctx context.Context, identifier, content, destination string) (firewall.SanitizationResult, error) {
	if m == nil || m.container == nil {
		return firewall.SanitizationResult{}, errModuleClosed
	}
	return m.container.Firewall.Gate(ctx, identifier, content, destination)
}

// Vault returns the credential vault.
func (m *Module) Vault() *vault.Vault {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Vault
}

// Firewall returns the content firewall.
func (m *Module) Firewall() *firewall.Firewall {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Firewall
}

// Commands returns the go-command catalog.
func (m *Module) Commands() *commands.Catalog {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Commands
}

// Config returns the effective module configuration.
func (m *Module) Config() config.Config {
	if m == nil || m.container == nil {
		return config.Config{}
	}
	return m.container.Config
}

// Close releases storage the module opened.
func (m *Module) Close() error {
	if m == nil {
		return nil
	}
	return m.container.Close()
}
