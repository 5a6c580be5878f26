package main

import (
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/urfave/cli/v2"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API, the outbox publisher and the cache consumer",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(c.Context, cfg, logger.New(cfg.Log, "storefront"))
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log, "storefront")

			creds := cfg.Credentials()
			repo, err := repository.NewRepository(creds)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.RunMigrations(creds); err != nil {
				return err
			}
			log.Info().Str("driver", creds.Driver).Msg("database migrations completed")
			return nil
		},
	}
}

// tokenCommand mints bearer tokens for local development.
func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "user id", Required: true},
			&cli.BoolFlag{Name: "admin", Usage: "issue an admin token"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			role := domain.RoleBuyer
			if c.Bool("admin") {
				role = domain.RoleAdmin
			}
			token, err := tokens.Issue(c.String("user"), role)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

// listingCommand toggles a listing's availability in the local catalog projection.
func listingCommand() *cli.Command {
	toggle := func(disabled bool) cli.ActionFunc {
		return func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("listing id is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log, "storefront")

			repo, err := repository.NewRepository(cfg.Credentials())
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.SetListingDisabled(c.Context, id, disabled); err != nil {
				return err
			}
			log.Info().Str("listing_id", id).Bool("disabled", disabled).Msg("listing updated")
			return nil
		}
	}

	return &cli.Command{
		Name:  "listing",
		Usage: "Enable or disable a listing for offers and carts",
		Subcommands: []*cli.Command{
			{Name: "disable", ArgsUsage: "LISTING_ID", Action: toggle(true)},
			{Name: "enable", ArgsUsage: "LISTING_ID", Action: toggle(false)},
		},
	}
}
