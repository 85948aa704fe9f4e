package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-pageguard/pkg/firewall"
	"github.com/goliatone/go-pageguard/pkg/interfaces/logger"
	"github.com/goliatone/go-pageguard/pkg/providers"
)

// ErrRejectedCredential wraps a failed credential shape check.
var ErrRejectedCredential = errors.New("commands: credential rejected")

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	StoreCredential  command.Commander[StoreCredential]
	RemoveCredential command.Commander[RemoveCredential]
	SanitizeContent  command.Commander[SanitizeContent]
	ResetRateLimit   command.Commander[ResetRateLimit]
}

type vaultService interface {
	StoreFor(ctx context.Context, p providers.Provider, plaintext string) error
	RemoveFor(ctx context.Context, p providers.Provider) error
}

type firewallService interface {
	ValidateCredentialFormat(p providers.Provider, key string) firewall.CredentialCheck
	ExtractText(html string) (string, error)
	Gate(ctx context.Context, identifier, content, destination string, opts ...firewall.RateLimitOption) (firewall.SanitizationResult, error)
	ResetRateLimit(ctx context.Context, identifier string) error
}

// Dependencies wires the vault and firewall into the command catalog.
type Dependencies struct {
	Vault    vaultService
	Firewall firewallService
	Logger   logger.Logger
}

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Vault == nil {
		return nil, errors.New("commands: vault is required")
	}
	if deps.Firewall == nil {
		return nil, errors.New("commands: firewall is required")
	}
	deps.Logger = logger.OrNop(deps.Logger)

	return &Catalog{
		StoreCredential:  storeCredentialCommand{vault: deps.Vault, firewall: deps.Firewall, logger: deps.Logger},
		RemoveCredential: removeCredentialCommand{vault: deps.Vault},
		SanitizeContent:  sanitizeCommand{firewall: deps.Firewall},
		ResetRateLimit:   resetRateLimitCommand{firewall: deps.Firewall},
	}, nil
}

// Commanders returns every handler so callers can register them with go-command registries.
func (c *Catalog) Commanders() []any {
	if c == nil {
		return nil
	}
	return []any{
		c.StoreCredential,
		c.RemoveCredential,
		c.SanitizeContent,
		c.ResetRateLimit,
	}
}

// StoreCredential validates and persists a provider API key.
type StoreCredential struct {
	Provider string `json:"provider"`
	Key      string `json:"key"`
}

type storeCredentialCommand struct {
	vault    vaultService
	firewall firewallService
	logger   logger.Logger
}

func (c storeCredentialCommand) Execute(ctx context.Context, msg StoreCredential) error {
	p, err := providers.Parse(msg.Provider)
	if err != nil {
		return err
	}
	key := strings.TrimSpace(msg.Key)
	if check := c.firewall.ValidateCredentialFormat(p, key); !check.Valid {
		c.logger.Info("commands: credential rejected",
			logger.Field{Key: "provider", Value: p.String()},
			logger.Field{Key: "reason", Value: check.Reason},
		)
		return fmt.Errorf("%w: %s", ErrRejectedCredential, check.Reason)
	}
	return c.vault.StoreFor(ctx, p, key)
}

// RemoveCredential deletes a stored provider API key.
type RemoveCredential struct {
	Provider string `json:"provider"`
}

type removeCredentialCommand struct {
	vault vaultService
}

func (c removeCredentialCommand) Execute(ctx context.Context, msg RemoveCredential) error {
	p, err := providers.Parse(msg.Provider)
	if err != nil {
		return err
	}
	return c.vault.RemoveFor(ctx, p)
}

// SanitizeContent gates page text bound for destination. When HTML is set
// the text is extracted first. The outcome is written to Result when it is
// non-nil.
type SanitizeContent struct {
	Identifier  string `json:"identifier"`
	Content     string `json:"content"`
	Destination string `json:"destination"`
	HTML        bool   `json:"html"`

	Result *firewall.SanitizationResult `json:"-"`
}

type sanitizeCommand struct {
	firewall firewallService
}

func (c sanitizeCommand) Execute(ctx context.Context, msg SanitizeContent) error {
	content := msg.Content
	if msg.HTML {
		text, err := c.firewall.ExtractText(content)
		if err != nil {
			return err
		}
		content = text
	}
	res, err := c.firewall.Gate(ctx, msg.Identifier, content, msg.Destination)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = res
	}
	return nil
}

// ResetRateLimit clears the call budget for an identifier.
type ResetRateLimit struct {
	Identifier string `json:"identifier"`
}

type resetRateLimitCommand struct {
	firewall firewallService
}

func (c resetRateLimitCommand) Execute(ctx context.Context, msg ResetRateLimit) error {
	return c.firewall.ResetRateLimit(ctx, msg.Identifier)
}
