package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/margin/internal/config"
	"git.home.luguber.info/inful/margin/internal/preview"
)

// BuildCmd builds the site, optionally serving it with live reload.
type BuildCmd struct {
	Serve      bool   `help:"Serve the output and rebuild on changes"`
	BundleInfo bool   `name:"bundle-info" help:"Log a summary of the output after each build"`
	Output     string `short:"o" help:"Output directory (overrides output.directory)"`
	Content    string `help:"Content directory (overrides content.directory)"`
	BaseDir    string `name:"base-dir" help:"URL prefix the site is served under"`
	Port       int    `help:"Dev server port"`
	WSPort     int    `name:"ws-port" help:"Live reload WebSocket port"`
}

func (b *BuildCmd) Run(g *Global, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	b.apply(cfg)
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return preview.New(cfg, preview.Options{Logger: g.logger(), Console: g.out()}).Run(ctx)
}

// apply overrides configuration values with the flags that were set.
func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Serve {
		cfg.Build.Serve = true
	}
	if b.BundleInfo {
		cfg.Build.BundleInfo = true
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Content != "" {
		cfg.Content.Directory = b.Content
	}
	if b.BaseDir != "" {
		cfg.Server.BaseDir = b.BaseDir
	}
	if b.Port != 0 {
		cfg.Server.Port = b.Port
	}
	if b.WSPort != 0 {
		cfg.Server.WSPort = b.WSPort
	}
}
