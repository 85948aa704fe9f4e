// pageguard is an operator tool for the credential vault and the outbound
// content firewall. Credentials are bound to this machine: the vault key is
// derived from the host environment, so records written on one machine
// cannot be read on another.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/goliatone/go-pageguard/pkg/commands"
	"github.com/goliatone/go-pageguard/pkg/config"
	"github.com/goliatone/go-pageguard/pkg/fingerprint"
	"github.com/goliatone/go-pageguard/pkg/firewall"
	"github.com/goliatone/go-pageguard/pkg/interfaces/logger"
	"github.com/goliatone/go-pageguard/pkg/pageguard"
	"github.com/goliatone/go-pageguard/pkg/providers"
	"github.com/goliatone/go-pageguard/pkg/vault"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env := environment{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
	}
	if err := run(ctx, os.Args[1:], env); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
}

type globalFlags struct {
	driver      string
	dsn         string
	maxRequests int
	window      time.Duration
	verbose     bool
}

type subcommand struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, s *services, args []string) error
}

var subcommands = []subcommand{
	{"store", "store <provider> [--key KEY]", "encrypt and store a provider API key (reads stdin when --key is omitted)", runStore},
	{"retrieve", "retrieve <provider> [--reveal]", "report whether a usable key exists; --reveal prints it", runRetrieve},
	{"exists", "exists <provider>", "print true when a key record exists", runExists},
	{"remove", "remove <provider>", "delete a stored key", runRemove},
	{"describe", "describe <provider>", "print non-sensitive record metadata", runDescribe},
	{"validate", "validate <provider> [--key KEY]", "check a key's format without storing it", runValidate},
	{"check-url", "check-url <url>", "check whether a destination may receive page content", runCheckURL},
	{"sanitize", "sanitize --url URL [--id ID] [--html] [--file PATH]", "sanitize content bound for URL and print it", runSanitize},
	{"extract", "extract [--file PATH]", "convert HTML to plain text", runExtract},
	{"reset-limit", "reset-limit <identifier>", "clear the rate limit record for an identifier", runResetLimit},
}

func run(ctx context.Context, args []string, env environment) error {
	var globals globalFlags
	flagSet := pflag.NewFlagSet("pageguard", pflag.ContinueOnError)
	flagSet.SetOutput(env.Stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&globals.driver, "driver", "", "storage driver: sqlite or memory (default sqlite)")
	flagSet.StringVar(&globals.dsn, "dsn", "", "sqlite DSN (default $PAGEGUARD_DSN or file:pageguard.db)")
	flagSet.IntVar(&globals.maxRequests, "max-requests", 0, "rate limit calls per window")
	flagSet.DurationVar(&globals.window, "window", 0, "rate limit sliding window")
	flagSet.BoolVarP(&globals.verbose, "verbose", "v", false, "log debug output to stderr")
	flagSet.Usage = func() { printUsage(env.Stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(env.Stderr, flagSet)
		return errors.New("a subcommand is required")
	}
	name, subArgs := rest[0], rest[1:]
	if name == "help" {
		printUsage(env.Stdout, flagSet)
		return nil
	}

	for _, sub := range subcommands {
		if sub.name != name {
			continue
		}
		cfg, err := loadConfig(globals, env)
		if err != nil {
			return err
		}
		s, err := openServices(ctx, cfg, globals.verbose, env)
		if err != nil {
			return err
		}
		defer s.close()
		return sub.run(ctx, s, subArgs)
	}
	return fmt.Errorf("unknown subcommand %q", name)
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: pageguard [global flags] <subcommand> [args]\n\nSubcommands:\n")
	for _, sub := range subcommands {
		fmt.Fprintf(w, "  %-52s %s\n", sub.usage, sub.summary)
	}
	fmt.Fprintf(w, "\nProviders: %s\n\nGlobal flags:\n%s", providerList(), flagSet.FlagUsages())
}

func providerList() string {
	names := make([]string, 0, len(providers.All()))
	for _, p := range providers.All() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}

func loadConfig(globals globalFlags, env environment) (config.Config, error) {
	cfg := config.Defaults()
	if globals.driver != "" {
		cfg.Persistence.Driver = globals.driver
	}
	switch {
	case globals.dsn != "":
		cfg.Persistence.DSN = globals.dsn
	case env.Getenv("PAGEGUARD_DSN") != "":
		cfg.Persistence.DSN = env.Getenv("PAGEGUARD_DSN")
	}
	if globals.maxRequests != 0 {
		cfg.RateLimit.MaxRequests = globals.maxRequests
	}
	if globals.window != 0 {
		cfg.RateLimit.WindowMs = globals.window.Milliseconds()
	}
	return config.Load(cfg)
}

type services struct {
	out      io.Writer
	errOut   io.Writer
	in       io.Reader
	vault    *vault.Vault
	firewall *firewall.Firewall
	catalog  *commands.Catalog
	close    func()
}

func openServices(ctx context.Context, cfg config.Config, verbose bool, env environment) (*services, error) {
	level := logger.LevelWarn
	if verbose {
		level = logger.LevelDebug
	}
	lgr := logger.NewBasic(env.Stderr, level)

	host := fingerprint.NewHost()
	host.Getenv = env.Getenv

	module, err := pageguard.NewModule(ctx, pageguard.ModuleOptions{
		Config: cfg,
		Source: host,
		Logger: lgr,
	})
	if err != nil {
		return nil, err
	}
	return &services{
		out:      env.Stdout,
		errOut:   env.Stderr,
		in:       env.Stdin,
		vault:    module.Vault(),
		firewall: module.Firewall(),
		catalog:  module.Commands(),
		close: func() {
			if err := module.Close(); err != nil {
				lgr.Warn("pageguard: close storage", logger.Field{Key: "error", Value: err})
			}
		},
	}, nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func providerArg(args []string) (providers.Provider, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected one provider argument (%s)", providerList())
	}
	return providers.Parse(args[0])
}

// readInput returns the contents of path, or stdin when path is empty.
func readInput(s *services, path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(s.in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func runStore(ctx context.Context, s *services, args []string) error {
	fs := newFlagSet("store")
	key := fs.String("key", "", "API key (avoid: it lands in shell history)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := providerArg(fs.Args())
	if err != nil {
		return err
	}
	value := *key
	if value == "" {
		if value, err = readInput(s, ""); err != nil {
			return err
		}
	}
	if err := s.catalog.StoreCredential.Execute(ctx, commands.StoreCredential{Provider: p.String(), Key: value}); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "stored %s credential\n", p)
	return nil
}

func runRetrieve(ctx context.Context, s *services, args []string) error {
	fs := newFlagSet("retrieve")
	reveal := fs.Bool("reveal", false, "print the decrypted key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := providerArg(fs.Args())
	if err != nil {
		return err
	}
	key, ok := s.vault.RetrieveFor(ctx, p)
	if !ok {
		return fmt.Errorf("no usable %s credential on this machine", p)
	}
	if *reveal {
		fmt.Fprintln(s.out, key)
		return nil
	}
	fmt.Fprintf(s.out, "%s credential is available\n", p)
	return nil
}

func runExists(ctx context.Context, s *services, args []string) error {
	p, err := providerArg(args)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, s.vault.ExistsFor(ctx, p))
	return nil
}

func runRemove(ctx context.Context, s *services, args []string) error {
	p, err := providerArg(args)
	if err != nil {
		return err
	}
	if err := s.catalog.RemoveCredential.Execute(ctx, commands.RemoveCredential{Provider: p.String()}); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "removed %s credential\n", p)
	return nil
}

func runDescribe(ctx context.Context, s *services, args []string) error {
	p, err := providerArg(args)
	if err != nil {
		return err
	}
	meta, err := s.vault.Describe(ctx, p.KeyName())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(s.out, "%s: %v\n", k, meta[k])
	}
	return nil
}

func runValidate(_ context.Context, s *services, args []string) error {
	fs := newFlagSet("validate")
	key := fs.String("key", "", "API key to check")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := providerArg(fs.Args())
	if err != nil {
		return err
	}
	value := *key
	if value == "" {
		if value, err = readInput(s, ""); err != nil {
			return err
		}
	}
	check := s.firewall.ValidateCredentialFormat(p, value)
	if !check.Valid {
		return fmt.Errorf("invalid %s key: %s", p, check.Reason)
	}
	fmt.Fprintf(s.out, "%s key format is valid\n", p)
	return nil
}

func runCheckURL(_ context.Context, s *services, args []string) error {
	if len(args) != 1 {
		return errors.New("expected one URL argument")
	}
	check := s.firewall.IsDestinationSafe(args[0])
	if !check.Safe {
		return &firewall.UnsafeDestinationError{URL: args[0], Reason: check.Reason}
	}
	fmt.Fprintln(s.out, "safe")
	return nil
}

func runSanitize(ctx context.Context, s *services, args []string) error {
	fs := newFlagSet("sanitize")
	dest := fs.String("url", "", "destination URL (required)")
	id := fs.String("id", "cli", "rate limit identifier")
	html := fs.Bool("html", false, "treat input as HTML and extract its text first")
	file := fs.String("file", "", "read content from file instead of stdin")
	stats := fs.Bool("stats", false, "print length and redaction stats to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dest == "" {
		return errors.New("--url is required")
	}
	content, err := readInput(s, *file)
	if err != nil {
		return err
	}
	var res firewall.SanitizationResult
	err = s.catalog.SanitizeContent.Execute(ctx, commands.SanitizeContent{
		Identifier:  *id,
		Content:     content,
		Destination: *dest,
		HTML:        *html,
		Result:      &res,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, res.Content)
	if *stats {
		fmt.Fprintf(s.errOut, "original=%d sanitized=%d truncated=%t redactions=%v\n",
			res.OriginalLength, res.SanitizedLength, res.Truncated, res.Redactions)
	}
	return nil
}

func runExtract(_ context.Context, s *services, args []string) error {
	fs := newFlagSet("extract")
	file := fs.String("file", "", "read HTML from file instead of stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	html, err := readInput(s, *file)
	if err != nil {
		return err
	}
	text, err := s.firewall.ExtractText(html)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, text)
	return nil
}

func runResetLimit(ctx context.Context, s *services, args []string) error {
	if len(args) != 1 {
		return errors.New("expected one identifier argument")
	}
	if err := s.catalog.ResetRateLimit.Execute(ctx, commands.ResetRateLimit{Identifier: args[0]}); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "rate limit for %s cleared\n", args[0])
	return nil
}
