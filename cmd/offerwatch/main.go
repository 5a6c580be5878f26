package main

import (
	"fmt"
	"os"

	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "offerwatch",
		Usage: "watch a storefront's notifications and reserved cart from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "storefront base URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"OFFERWATCH_URL"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token; empty browses anonymously",
				EnvVars: []string{"OFFERWATCH_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "session",
				Usage:   "local cart session id",
				EnvVars: []string{"OFFERWATCH_SESSION"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			feedCommand(),
			cartCommand(),
			offerCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type session struct {
	client   *client.Client
	identity domain.Identity
	log      zerolog.Logger
}

func newSession(c *cli.Context) (*session, error) {
	log := logger.New(config.Log{Level: c.String("log-level"), Format: "console"}, "offerwatch")
	identity, err := client.IdentityFromToken(c.String("token"))
	if err != nil {
		return nil, err
	}
	return &session{
		client: client.New(client.Options{
			BaseURL:     c.String("url"),
			CartSession: c.String("session"),
		}, log),
		identity: identity,
		log:      log,
	}, nil
}
