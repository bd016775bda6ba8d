package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/angelmondragon/taskrent-backend/internal/orders"
	"github.com/angelmondragon/taskrent-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/storeclient"
)

func main() {
	var opts actionOptions
	orderID := flag.String("order", "", "order id")
	flag.StringVar(&opts.action, "action", "", "pay|start|complete|cancel|dispute|resolve (empty shows the order)")
	flag.IntVar(&opts.leaseDays, "lease-days", 0, "lease days for rental payments")
	flag.StringVar(&opts.password, "password", "", "payment password")
	flag.BoolVar(&opts.useBalance, "use-balance", false, "pay from the wallet balance")
	flag.StringVar(&opts.reason, "reason", "", "cancel or dispute reason")
	flag.StringVar(&opts.outcome, "outcome", "", "dispute outcome: completed|canceled")
	flag.StringVar(&opts.notes, "notes", "", "completion or resolution notes")
	support := flag.Bool("support", false, "act as a support agent")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "order-cli", Output: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		logg.Error(context.Background(), "failed to load client config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "order-cli",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	id, err := uuid.Parse(strings.TrimSpace(*orderID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "missing or invalid -order")
		os.Exit(2)
	}
	actor := orders.Actor{Support: *support}
	if raw := strings.TrimSpace(cfg.Client.UserID); raw != "" {
		if actor.UserID, err = uuid.Parse(raw); err != nil {
			logg.Error(context.Background(), "invalid client user id", err)
			os.Exit(1)
		}
	}

	client, err := storeclient.NewClient(cfg.Client.BaseURL,
		storeclient.WithToken(cfg.Client.Token),
		storeclient.WithTimeout(cfg.Client.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create store client", err)
		os.Exit(1)
	}
	gw, err := orders.NewGateway(orders.GatewayParams{
		Store:        client,
		Verifier:     client,
		Logger:       logg,
		Actor:        actor,
		MaxLeaseDays: cfg.Orders.MaxLeaseDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order gateway", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithOrderID(ctx, id.String())

	view := orders.NewView(nil)
	if _, err := gw.Refresh(ctx, view, id); err != nil {
		fmt.Fprintf(os.Stderr, "could not load order %s: %s\n", id, describeError(err))
		os.Exit(1)
	}

	if opts.action != "" {
		if _, err := runAction(ctx, gw, view, opts); err != nil {
			fmt.Fprintln(os.Stderr, describeError(err))
			renderOrder(os.Stdout, view.Snapshot(), gw.Actions(view))
			os.Exit(1)
		}
	}
	renderOrder(os.Stdout, view.Snapshot(), gw.Actions(view))
}

func describeError(err error) string {
	msg := fmt.Sprintf("%s: %s", pkgerrors.CodeOf(err), err)
	if pkgerrors.IsRetryable(err) {
		msg += " (retry possible)"
	}
	return msg
}
