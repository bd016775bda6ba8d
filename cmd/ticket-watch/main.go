package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/taskrent-backend/internal/tickets"
	"github.com/angelmondragon/taskrent-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/metrics"
	"github.com/angelmondragon/taskrent-backend/pkg/storeclient"
)

const usage = `commands:
  <text>            send a message with any staged attachments
  /attach <path>    upload an image and stage it
  /unstage <n>      drop the n-th staged attachment
  /close <reason>   close the ticket
  /refresh          sync now
  /quit             exit`

func main() {
	number := flag.String("ticket", "", "ticket number to follow")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "ticket-watch", Output: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		logg.Error(context.Background(), "failed to load client config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "ticket-watch",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	if strings.TrimSpace(*number) == "" {
		fmt.Fprintln(os.Stderr, "missing -ticket")
		os.Exit(2)
	}

	client, err := storeclient.NewClient(cfg.Client.BaseURL,
		storeclient.WithToken(cfg.Client.Token),
		storeclient.WithTimeout(cfg.Client.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create store client", err)
		os.Exit(1)
	}

	session, err := tickets.NewSession(tickets.SessionParams{
		Store:        client,
		TicketNumber: *number,
		Interval:     cfg.Tickets.PollInterval,
		Logger:       logg,
		Metrics:      metrics.NewTicketSyncMetrics(nil),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ticket session", err)
		os.Exit(1)
	}
	defer session.Close()

	dispatcher, err := tickets.NewDispatcher(tickets.DispatcherParams{
		Store:          client,
		Attachments:    client,
		Session:        session,
		MaxAttachments: cfg.Tickets.MaxAttachments,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := session.Activate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "could not load ticket %s: %v\n", *number, err)
		os.Exit(1)
	}
	renderTicket(os.Stdout, session.Snapshot(), time.Now())
	fmt.Println(usage)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case detail, ok := <-session.Updates():
				if !ok {
					return
				}
				renderTicket(os.Stdout, detail, time.Now())
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	draft := dispatcher.NewDraft()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, dispatcher, session, draft, line); quit {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, d *tickets.Dispatcher, s *tickets.Session, draft *tickets.Draft, line string) bool {
	cmd, arg := parseCommand(line)
	var err error
	switch cmd {
	case "quit":
		return true
	case "refresh":
		err = s.Refresh(ctx)
	case "close":
		err = d.CloseTicket(ctx, arg)
	case "attach":
		err = attach(ctx, d, draft, arg)
	case "unstage":
		err = unstage(draft, arg)
	case "":
		if arg == "" {
			return false
		}
		draft.SetContent(arg)
		err = d.Send(ctx, draft)
	default:
		fmt.Println(usage)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
	}
	return false
}

func unstage(draft *tickets.Draft, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(draft.Attachments()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: /unstage <n>")
	}
	draft.Unstage(n - 1)
	fmt.Printf("unstaged #%d (%d left)\n", n, draft.Remaining())
	return nil
}

// describeError formats a failure for the terminal.
func describeError(err error) string {
	msg := fmt.Sprintf("%s: %s", pkgerrors.CodeOf(err), err)
	if pkgerrors.IsRetryable(err) {
		msg += " (retry possible)"
	}
	return msg
}

func attach(ctx context.Context, d *tickets.Dispatcher, draft *tickets.Draft, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	ref, err := d.Upload(ctx, draft, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Printf("staged %s (%d left)\n", ref, draft.Remaining())
	return nil
}

// parseCommand splits "/cmd arg" lines; anything else is message text.
func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	cmd, arg, _ := strings.Cut(line[1:], " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}
