package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/tbrandt/othala/internal"
	pkgconfig "github.com/tbrandt/othala/pkg/config"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfPresent(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if path := cmd.String("vault"); path != "" {
		cfg.Vault.Path = path
	}
	if name := cmd.String("vault-name"); name != "" {
		cfg.Vault.Name = name
	}
	return cfg, nil
}

func appFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "vault",
			Usage:   "Path to the vault root (overrides config)",
			Sources: cli.EnvVars("VAULT_PATH"),
		},
		&cli.StringFlag{
			Name:    "vault-name",
			Usage:   "Vault display name (overrides config)",
			Sources: cli.EnvVars("VAULT_NAME"),
		},
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func main() {
	flags := appFlags()

	cmd := &cli.Command{
		Name:  "othala",
		Usage: "Markdown vault integration layer: templated notes, wikilink graphs, fuzzy search, and record sync over MCP or REST",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST API with live vault events",
				Action: runServe,
				Flags:  flags,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP tool gateway over stdio",
				Action: runMCP,
				Flags:  flags,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
