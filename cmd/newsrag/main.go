package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"newsrag/internal/config"
	"newsrag/internal/logging"
	"newsrag/internal/service"
	"newsrag/internal/tui"
	"newsrag/internal/userdata"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], runTUI); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func runTUI(ctx context.Context, svc *service.NewsService) error {
	_, err := tea.NewProgram(tui.New(ctx, svc), tea.WithContext(ctx)).Run()
	return err
}

// run wires the application and hands it to ui. Every resource it opens is
// closed before it returns, whatever the outcome.
func run(args []string, ui func(context.Context, *service.NewsService) error) error {
	fs := flag.NewFlagSet("newsrag", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/newsrag/config.yaml if not provided)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg *config.AppConfig
		err error
	)
	if *cfgPath == "" {
		cfg, *cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(*cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()
	log.WithField("config", *cfgPath).Info("starting newsrag")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, err := buildRetriever(cfg.News, log)
	if err != nil {
		return fmt.Errorf("news retriever init failed: %w", err)
	}
	embedder, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return fmt.Errorf("embedder init failed: %w", err)
	}
	ix, err := buildIndex(cfg.Index, embedder, log)
	if err != nil {
		return fmt.Errorf("index init failed: %w", err)
	}
	defer func() {
		if err := ix.Close(); err != nil {
			log.WithError(err).Error("failed to close index")
		}
	}()
	sum, err := buildSummarizer(cfg.Summarizer)
	if err != nil {
		return fmt.Errorf("summarizer init failed: %w", err)
	}
	store, err := userdata.Open(cfg.UserData.Path, log)
	if err != nil {
		return fmt.Errorf("user data init failed: %w", err)
	}

	svc := service.NewNewsService(retriever, ix, sum, store, log)
	if svc.LoadIndex(ctx) {
		log.Info("persisted article index loaded")
	}

	if err := ui(ctx, svc); err != nil {
		log.WithError(err).Error("terminal UI stopped")
		return fmt.Errorf("terminal UI stopped: %w", err)
	}
	log.Info("newsrag stopped")
	return nil
}
