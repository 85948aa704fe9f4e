package di

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/goliatone/go-pageguard/pkg/commands"
	"github.com/goliatone/go-pageguard/pkg/config"
	"github.com/goliatone/go-pageguard/pkg/fingerprint"
	"github.com/goliatone/go-pageguard/pkg/firewall"
	"github.com/goliatone/go-pageguard/pkg/interfaces/logger"
	"github.com/goliatone/go-pageguard/pkg/storage"
	"github.com/goliatone/go-pageguard/pkg/vault"
)

// Options configure the DI container.
type Options struct {
	Config config.Config
	// Storage is opened from Config.Persistence when its Store is nil.
	Storage storage.Providers
	Source  fingerprint.Source
	Logger  logger.Logger
	Metrics storage.MetricsCollector
	Now     func() time.Time
}

// Container wires storage, the vault, the firewall and commands.
type Container struct {
	Config   config.Config
	Storage  storage.Providers
	Vault    *vault.Vault
	Firewall *firewall.Firewall
	Commands *commands.Catalog

	ownsStorage bool
}

func isZeroConfig(cfg config.Config) bool {
	return reflect.ValueOf(cfg).IsZero()
}

// New constructs the container using the supplied options.
func New(ctx context.Context, opts Options) (*Container, error) {
	if opts.Source == nil {
		return nil, errors.New("di: fingerprint source is required")
	}

	cfg := opts.Config
	if isZeroConfig(cfg) {
		cfg = config.Defaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lgr := logger.OrNop(opts.Logger)

	providers := opts.Storage
	owns := false
	if providers.Store == nil {
		var storageOpts []storage.Option
		if opts.Metrics != nil {
			storageOpts = append(storageOpts, storage.WithMetricsCollector(opts.Metrics))
		}
		opened, err := storage.Open(ctx, cfg.Persistence, storageOpts...)
		if err != nil {
			return nil, err
		}
		providers = opened
		owns = true
	}

	fail := func(err error) (*Container, error) {
		if owns {
			_ = providers.Close()
		}
		return nil, err
	}

	vaultSvc, err := vault.New(vault.Dependencies{
		Store:             providers.Store,
		Source:            opts.Source,
		Logger:            logger.Component(lgr, "vault"),
		DerivationVersion: cfg.Vault.DerivationVersion,
		Now:               opts.Now,
	})
	if err != nil {
		return fail(err)
	}

	firewallSvc, err := firewall.New(firewall.Dependencies{
		Store:   providers.Store,
		Logger:  logger.Component(lgr, "firewall"),
		Options: cfg.FirewallOptions(),
		Now:     opts.Now,
	})
	if err != nil {
		return fail(err)
	}

	catalog, err := commands.NewCatalog(commands.Dependencies{
		Vault:    vaultSvc,
		Firewall: firewallSvc,
		Logger:   logger.Component(lgr, "commands"),
	})
	if err != nil {
		return fail(err)
	}

	return &Container{
		Config:      cfg,
		Storage:     providers,
		Vault:       vaultSvc,
		Firewall:    firewallSvc,
		Commands:    catalog,
		ownsStorage: owns,
	}, nil
}

// Close releases storage the container opened itself. Caller supplied
// providers are left to the caller.
func (c *Container) Close() error {
	if c == nil || !c.ownsStorage {
		return nil
	}
	return c.Storage.Close()
}
