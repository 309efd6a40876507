package main

import (
	"context"
	"testing"
	"time"

	"github.com/starford/raido/internal"
	cli "github.com/urfave/cli/v3"
)

func runFlags(t *testing.T, flags []cli.Flag, apply func(*cli.Command, *internal.Config), cfg *internal.Config, args ...string) {
	t.Helper()
	cmd := &cli.Command{
		Name:  "raido",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			apply(c, cfg)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"raido"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestApplySecretFlags(t *testing.T) {
	cfg := internal.NewDefaultConfig()
	runFlags(t, secretFlags(), applySecretFlags, cfg,
		"--entropy-threshold", "4.25", "--allowlist", "allow.yaml")

	if cfg.Secrets.EntropyThreshold != 4.25 {
		t.Fatalf("entropy threshold = %v, want 4.25", cfg.Secrets.EntropyThreshold)
	}
	if cfg.Secrets.AllowlistPath != "allow.yaml" {
		t.Fatalf("allowlist path = %q, want allow.yaml", cfg.Secrets.AllowlistPath)
	}
	if cfg.Secrets.BaselinePath != internal.NewDefaultConfig().Secrets.BaselinePath {
		t.Fatalf("baseline path changed without the flag set")
	}
}

func TestApplyLinkFlags(t *testing.T) {
	cfg := internal.NewDefaultConfig()
	runFlags(t, linkFlags(), applyLinkFlags, cfg,
		"--timeout", "3s", "--link-workers", "2", "--deny-host", "example.com")

	if cfg.Links.Timeout.Std() != 3*time.Second {
		t.Fatalf("timeout = %s, want 3s", cfg.Links.Timeout)
	}
	if cfg.Links.Workers != 2 {
		t.Fatalf("workers = %d, want 2", cfg.Links.Workers)
	}
	if len(cfg.Links.DenyHosts) != 1 || cfg.Links.DenyHosts[0] != "example.com" {
		t.Fatalf("deny hosts = %v", cfg.Links.DenyHosts)
	}
}
