package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/normalize"
	"github.com/starford/raido/internal/report"
	pkgconfig "github.com/starford/raido/pkg/config"
)

// errFindings signals a completed run whose report contains blocking
// findings; it maps to the findings exit code rather than a usage error.
var errFindings = errors.New("validation findings")

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	configPath := cmd.String("config")
	if _, err := os.Stat(configPath); err == nil {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if cmd.IsSet("config") {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	// Command-line overrides.
	if cmd.IsSet("root") {
		cfg.Corpus.Root = cmd.String("root")
	}
	if v := cmd.StringSlice("glob"); len(v) > 0 {
		cfg.Corpus.Globs = v
	}
	if v := cmd.StringSlice("ignore"); len(v) > 0 {
		cfg.Corpus.Ignores = v
	}
	if cmd.IsSet("registry") {
		cfg.Registry.Path = cmd.String("registry")
	}
	if cmd.IsSet("workers") {
		cfg.App.Workers = int(cmd.Int("workers"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// runChecks executes one pipeline pass and writes the report. It returns
// errFindings when the exit-code policy calls for a non-zero status.
func runChecks(ctx context.Context, cmd *cli.Command, cfg *internal.Config, opts internal.RunOptions) error {
	logger := internal.NewLogger(cfg)

	pipe, cleanup, err := internal.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := pipe.Run(ctx, opts)
	if err != nil {
		return err
	}

	if err := rep.Write(cmd.String("report"), cmd.String("format")); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if rep.ExitCode(opts.Strict) != report.ExitClean {
		return errFindings
	}
	return nil
}

func checksAction(checks ...string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyLinkFlags(cmd, cfg)
		applySecretFlags(cmd, cfg)
		applyIndexFlags(cmd, cfg)

		opts := internal.RunOptions{
			Checks:            checks,
			Strict:            cmd.Bool("strict"),
			UpdateFrontmatter: cmd.Bool("update-frontmatter"),
			UpdateBaseline:    cmd.Bool("update-baseline"),
			WriteIndex:        cmd.Bool("write"),
			OnlyCanonized:     cmd.Bool("only-canonized"),
			Algo:              cmd.String("algo"),
			Normalize:         normalizeFlags(cmd),
		}
		if len(checks) == 0 && cmd.IsSet("check") {
			opts.Checks = cmd.StringSlice("check")
		}
		return runChecks(ctx, cmd, cfg, opts)
	}
}

func applyLinkFlags(cmd *cli.Command, cfg *internal.Config) {
	if cmd.IsSet("timeout") {
		cfg.Links.Timeout = internal.Duration(cmd.Duration("timeout"))
	}
	if cmd.IsSet("link-workers") {
		cfg.Links.Workers = int(cmd.Int("link-workers"))
	}
	if cmd.IsSet("external-only") {
		cfg.Links.ExternalOnly = cmd.Bool("external-only")
	}
	if v := cmd.StringSlice("allow-host"); len(v) > 0 {
		cfg.Links.AllowHosts = v
	}
	if v := cmd.StringSlice("deny-host"); len(v) > 0 {
		cfg.Links.DenyHosts = v
	}
	if cmd.IsSet("cache") {
		cfg.Links.CachePath = cmd.String("cache")
	}
	if cmd.IsSet("max-age") {
		cfg.Links.CacheMaxAge = internal.Duration(cmd.Duration("max-age"))
	}
}

func applySecretFlags(cmd *cli.Command, cfg *internal.Config) {
	if cmd.IsSet("allowlist") {
		cfg.Secrets.AllowlistPath = cmd.String("allowlist")
	}
	if cmd.IsSet("baseline") {
		cfg.Secrets.BaselinePath = cmd.String("baseline")
	}
	if cmd.IsSet("entropy-threshold") {
		cfg.Secrets.EntropyThreshold = cmd.Float("entropy-threshold")
	}
}

func applyIndexFlags(cmd *cli.Command, cfg *internal.Config) {
	if cmd.IsSet("out") {
		cfg.Index.Out = cmd.String("out")
	}
	if cmd.IsSet("group-by") {
		cfg.Index.GroupBy = cmd.String("group-by")
	}
}

func normalizeFlags(cmd *cli.Command) normalize.Options {
	return normalize.Options{
		UnifyEOL:          cmd.Bool("canon-eol"),
		StripTrailingWS:   cmd.Bool("strip-trailing-space"),
		StripHTMLComments: cmd.Bool("strip-html-comments"),
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	return internal.Serve(ctx,
		internal.WithConfig(cfg),
		internal.WithRunOptions(internal.RunOptions{Strict: cmd.Bool("strict")}),
	)
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// MCP speaks JSON-RPC over stdout; keep logs off it.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	pipe, cleanup, err := internal.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpserver.New(pipe, internal.RunOptions{}).ServeStdio()
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file",
			Value:   "config/config.yaml",
			Sources: cli.EnvVars("RAIDO_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "root",
			Usage:   "Corpus root directory",
			Sources: cli.EnvVars("RAIDO_CORPUS_ROOT"),
		},
		&cli.StringSliceFlag{Name: "glob", Usage: "Entry glob pattern (repeatable)"},
		&cli.StringSliceFlag{Name: "ignore", Usage: "Ignore glob pattern (repeatable)"},
		&cli.StringFlag{Name: "registry", Usage: "Path to the exception registry"},
		&cli.IntFlag{Name: "workers", Usage: "Per-entry validation parallelism"},
		&cli.StringFlag{Name: "format", Usage: "Report format: text or json", Value: "text"},
		&cli.StringFlag{Name: "report", Usage: "Report destination (- for stdout)", Value: "-"},
		&cli.BoolFlag{Name: "strict", Usage: "Treat warnings as blocking"},
	}
}

func hashFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "update-frontmatter", Usage: "Write computed digests back into frontmatter"},
		&cli.StringFlag{Name: "algo", Usage: "Digest algorithm: sha256 or sha512", Value: "sha256"},
		&cli.BoolFlag{Name: "canon-eol", Usage: "Normalize line endings to LF before hashing", Value: true},
		&cli.BoolFlag{Name: "strip-trailing-space", Usage: "Strip trailing whitespace before hashing", Value: true},
		&cli.BoolFlag{Name: "strip-html-comments", Usage: "Strip HTML comments before hashing", Value: true},
	}
}

func linkFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{Name: "timeout", Usage: "Per-probe timeout"},
		&cli.IntFlag{Name: "link-workers", Usage: "Concurrent external probes"},
		&cli.BoolFlag{Name: "external-only", Usage: "Skip internal anchor and path checks"},
		&cli.StringSliceFlag{Name: "allow-host", Usage: "Allowed host suffix (repeatable)"},
		&cli.StringSliceFlag{Name: "deny-host", Usage: "Denied host suffix (repeatable)"},
		&cli.StringFlag{Name: "cache", Usage: "Probe cache path"},
		&cli.DurationFlag{Name: "max-age", Usage: "Probe cache freshness window"},
	}
}

func secretFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "allowlist", Usage: "Path to the allowlist file"},
		&cli.StringFlag{Name: "baseline", Usage: "Path to the baseline file"},
		&cli.BoolFlag{Name: "update-baseline", Usage: "Record current findings as the new baseline"},
		&cli.FloatFlag{Name: "entropy-threshold", Usage: "Shannon entropy threshold in bits per char"},
	}
}

func indexFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "Index output path"},
		&cli.StringFlag{Name: "group-by", Usage: "Grouping: stream, domain, status, or none"},
		&cli.BoolFlag{Name: "only-canonized", Usage: "Include canonized entries only"},
		&cli.BoolFlag{Name: "write", Usage: "Regenerate the index instead of checking drift"},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Integrity and attestation pipeline for a Markdown ledger corpus",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check frontmatter schema, content security, attestation, and exceptions",
				Action: checksAction(internal.CheckSchema, internal.CheckAttest),
			},
			{
				Name:   "hash",
				Usage:  "Verify or record normalized body digests",
				Flags:  hashFlags(),
				Action: checksAction(internal.CheckBodyHash),
			},
			{
				Name:   "attachments",
				Usage:  "Verify declared attachment digests and sizes",
				Flags:  hashFlags(),
				Action: checksAction(internal.CheckAttachments),
			},
			{
				Name:   "links",
				Usage:  "Resolve internal references and probe external links",
				Flags:  linkFlags(),
				Action: checksAction(internal.CheckLinks),
			},
			{
				Name:   "secrets",
				Usage:  "Scan entries for leaked credentials",
				Flags:  secretFlags(),
				Action: checksAction(internal.CheckSecrets),
			},
			{
				Name:   "index",
				Usage:  "Regenerate the corpus index or check it for drift",
				Flags:  indexFlags(),
				Action: checksAction(internal.CheckIndex),
			},
			{
				Name:  "all",
				Usage: "Run every check in pipeline order",
				Flags: append(append(append(append(hashFlags(), linkFlags()...), secretFlags()...), indexFlags()...),
					&cli.StringSliceFlag{Name: "check", Usage: "Restrict to named checks (repeatable)"}),
				Action: checksAction(),
			},
			{
				Name:  "serve",
				Usage: "Serve validation results over HTTP with live revalidation",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "Report server port"},
				},
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "Expose validation tools over the Model Context Protocol on stdio",
				Action: mcpAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errFindings) {
			os.Exit(report.ExitFindings)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(report.ExitWriteError)
	}
}
