// zoneboard is the terminal dashboard for zone assignment (admin mode) and
// route work (worker mode).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"zoneroute/internal/admin"
	"zoneroute/internal/api"
	"zoneroute/internal/config"
	"zoneroute/internal/dispatch"
	"zoneroute/internal/fieldwork"
	"zoneroute/internal/models"
	"zoneroute/internal/photo"
	"zoneroute/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	mode := flag.String("mode", "admin", "dashboard mode: admin or worker")
	worker := flag.String("worker", "", "worker name (worker mode)")
	server := flag.String("api", cfg.APIURL, "server base URL")
	logFile := flag.String("log", "zoneboard.log", "log file; the terminal belongs to the UI")
	live := flag.Bool("live", true, "subscribe to live updates")
	flag.Parse()

	var out io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	cfg.Env = "production" // JSON lines in the log file
	cfg.SetupLogging("zoneboard", out)

	client := api.New(*server, cfg.RequestTimeout)
	sender := dispatch.New(client, cfg.RequestTimeout)
	encoder := photo.NewEncoder(cfg.MaxPhotoBytes())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var model tea.Model
	switch *mode {
	case "admin":
		events := subscribe(ctx, client, *live, api.RoleAdmin, "")
		model = tui.NewAdminModel(admin.NewSession(client, sender, encoder), events, client)
	case "worker":
		if *worker == "" {
			fmt.Fprintln(os.Stderr, "worker mode needs -worker")
			os.Exit(2)
		}
		events := subscribe(ctx, client, *live, api.RoleWorker, *worker)
		model = tui.NewWorkerModel(fieldwork.NewSession(client, sender, encoder), *worker, events, client)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (expected admin or worker)\n", *mode)
		os.Exit(2)
	}

	log.Info().Str("mode", *mode).Str("api", client.BaseURL()).Msg("zoneboard starting")

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// subscribe opens the event stream; the dashboard still works without it.
func subscribe(ctx context.Context, client *api.Client, live bool, role, worker string) <-chan models.Event {
	if !live {
		return nil
	}
	events, err := client.Subscribe(ctx, role, worker)
	if err != nil {
		log.Warn().Err(err).Msg("live updates unavailable")
		return nil
	}
	return events
}
