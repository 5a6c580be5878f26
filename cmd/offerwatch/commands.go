package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notification"
	"github.com/fjod/go_cart/storefront/internal/reservation"
	"github.com/urfave/cli/v2"
)

func feedCommand() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Poll the notification feed the way an open browser tab does",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Value: notification.DefaultInterval, Usage: "refresh interval (5s to 30s)"},
			&cli.BoolFlag{Name: "once", Usage: "print one feed and exit"},
		},
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}
			aggregator := notification.NewAggregator(s.client, s.client, notification.DefaultPerKindLimit, notification.DefaultFeedLimit, s.log)

			if c.Bool("once") {
				printFeed(c.App.Writer, aggregator.Aggregate(c.Context, s.identity))
				return nil
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			poller := notification.NewPoller(aggregator, s.identity, config.ClampPollInterval(c.Duration("interval")), s.log)
			poller.OnUpdate(func(feed notification.Feed) { printFeed(c.App.Writer, feed) })
			poller.Run(ctx)
			return nil
		},
	}
}

func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "Show the cart with reserved items first",
		Action: func(c *cli.Context) error {
			s, err := newSession(c)
			if err != nil {
				return err
			}

			reserved, err := reservation.NewResolver(s.client, s.log).Resolve(c.Context, s.identity)
			if err != nil {
				return err
			}
			server, err := s.client.Cart(c.Context, s.identity)
			if err != nil {
				return err
			}
			printCart(c.App.Writer, cart.NewView(cart.Reconcile(reserved, server.Items)))
			return nil
		},
	}
}

func offerCommand() *cli.Command {
	return &cli.Command{
		Name:  "offer",
		Usage: "Act on offers",
		Subcommands: []*cli.Command{
			{
				Name:      "submit",
				ArgsUsage: "LISTING_ID",
				Flags:     []cli.Flag{&cli.Float64Flag{Name: "amount", Required: true}},
				Action: func(c *cli.Context) error {
					s, err := newSession(c)
					if err != nil {
						return err
					}
					o, err := s.client.SubmitOffer(c.Context, s.identity, c.Args().First(), c.Float64("amount"))
					if err != nil {
						return err
					}
					printOffer(c.App.Writer, o)
					return nil
				},
			},
			{
				Name:      "counter",
				ArgsUsage: "OFFER_ID",
				Flags:     []cli.Flag{&cli.Float64Flag{Name: "amount", Required: true}},
				Action: func(c *cli.Context) error {
					s, err := newSession(c)
					if err != nil {
						return err
					}
					o, err := s.client.CounterOffer(c.Context, s.identity, c.Args().First(), c.Float64("amount"))
					if err != nil {
						return err
					}
					printOffer(c.App.Writer, o)
					return nil
				},
			},
			{
				Name:      "accept",
				ArgsUsage: "OFFER_ID",
				Action: func(c *cli.Context) error {
					s, err := newSession(c)
					if err != nil {
						return err
					}
					o, err := s.client.AcceptOffer(c.Context, s.identity, c.Args().First())
					if err != nil {
						return err
					}
					printOffer(c.App.Writer, o)
					return nil
				},
			},
			{
				Name:      "reject",
				ArgsUsage: "OFFER_ID",
				Action: func(c *cli.Context) error {
					s, err := newSession(c)
					if err != nil {
						return err
					}
					o, err := s.client.RejectOffer(c.Context, s.identity, c.Args().First())
					if err != nil {
						return err
					}
					printOffer(c.App.Writer, o)
					return nil
				},
			},
		},
	}
}

func printFeed(w io.Writer, feed notification.Feed) {
	fmt.Fprintf(w, "[%s] %d offers, %d unread messages\n",
		feed.GeneratedAt.Format("15:04:05"), feed.Counts.Offers, feed.Counts.Messages)
	for _, n := range feed.Items {
		marker := " "
		if n.IsNew {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %-8s %s\n", marker, n.Type, summary(n))
	}
	if len(feed.Errors) > 0 {
		fmt.Fprintf(w, "  unavailable: %s\n", strings.Join(feed.Errors, ", "))
	}
}

func summary(n domain.Notification) string {
	if n.Type == domain.NotificationMessage {
		return fmt.Sprintf("%d unread: %s", n.UnreadCount, n.LastMessage)
	}
	line := fmt.Sprintf("offer %s %s at %s", n.OfferID, n.Status, domain.FormatPrice(n.Amount, n.Currency))
	if n.CounterAmount != nil {
		line += ", counter " + domain.FormatPrice(*n.CounterAmount, n.Currency)
	}
	return line
}

func printCart(w io.Writer, view cart.View) {
	for _, item := range view.Items {
		lock := ""
		if item.IsLocked {
			lock = " (reserved)"
		}
		fmt.Fprintf(w, "%-10s %-40s %12s%s\n", item.ID, item.Title, domain.FormatPrice(item.Price, item.Currency), lock)
	}
	fmt.Fprintf(w, "total %s\n", view.FormattedTotal)
}

func printOffer(w io.Writer, o *domain.Offer) {
	fmt.Fprintf(w, "%s %s %s %s\n", o.ID, o.ListingID, o.Status, domain.FormatPrice(o.CurrentOfferAmount, o.Currency))
}
