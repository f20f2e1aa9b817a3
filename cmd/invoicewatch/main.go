package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jfiedler/invoicewatch/internal/app"
	"github.com/jfiedler/invoicewatch/internal/classifier"
	"github.com/jfiedler/invoicewatch/internal/credential"
	"github.com/jfiedler/invoicewatch/internal/history"
	"github.com/jfiedler/invoicewatch/internal/ledger"
	"github.com/jfiedler/invoicewatch/internal/logging"
	"github.com/jfiedler/invoicewatch/internal/mail"
	"github.com/jfiedler/invoicewatch/internal/model"
	"github.com/jfiedler/invoicewatch/internal/poller"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to configuration file")
	headless := flag.Bool("headless", false, "poll without the interactive UI")
	processOnce := flag.Bool("process", false, "classify landing files once and exit")
	setPassword := flag.String("set-password", "", "store a password in the system keyring under the given key and exit")
	flag.Parse()

	if *setPassword != "" {
		runSetPassword(*setPassword)
		return
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("invoicewatch starting", zap.String("version", app.Version))

	cls := &classifier.Classifier{
		LandingDir: cfg.DownloadDir,
		BaseDir:    cfg.Archive.BaseDir,
		RulesPath:  cfg.Archive.RulesPath,
		Log:        logger,
	}

	if *processOnce {
		runProcessOnce(cls)
		return
	}

	password, ok := credential.Resolve(cfg.IMAP.Password)
	if !ok {
		logger.Warn("credential reference did not resolve, proceeding with empty password",
			zap.String("reference", cfg.IMAP.Password),
		)
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		logger.Fatal("failed opening uid ledger", zap.Error(err))
	}
	logger.Info("loaded uid ledger", zap.Int("processed_uids", led.Count()))

	hist, err := history.Open(cfg.HistoryPath)
	if err != nil {
		logger.Fatal("failed opening history store", zap.Error(err))
	}
	defer hist.Close()

	client := mail.NewClient(
		cfg.IMAP.Host, cfg.IMAP.Port, cfg.IMAP.Folder,
		cfg.IMAP.Username, password, cfg.IMAP.TLS,
	)
	downloader := mail.NewDownloader(client, led, cfg.DownloadDir, logger)

	backoff := poller.NewBackoff(
		secondsDuration(cfg.Poll.BackoffInitialSec),
		cfg.Poll.BackoffFactor,
		secondsDuration(cfg.Poll.BackoffMaxSec),
	)
	p := poller.New(downloader.Sync, cfg.Poll.Interval(), backoff, hist, logger)

	if *headless {
		runHeadless(p, logger)
		return
	}

	root := app.New(p, cls, hist, cfg.Archive.RulesPath, cfg.Archive.IgnorePath)
	program := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		logger.Error("ui terminated", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("invoicewatch stopped")
}

// runSetPassword prompts for a secret without echo and stores it in the
// system keyring, to be referenced from the config as keyring:<key>.
func runSetPassword(key string) {
	fmt.Fprintf(os.Stderr, "Password for %q: ", key)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := credential.Set(key, string(secret)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stored. Set imap.password to keyring:%s in the config.\n", key)
}

// runProcessOnce classifies the landing directory once, printing the
// per-file results, and exits.
func runProcessOnce(cls *classifier.Classifier) {
	results, err := cls.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	for _, res := range results {
		fmt.Println(res.String())
	}
}

// runHeadless polls until interrupted, draining poller results so the
// scheduler never stalls on a full channel.
func runHeadless(p *poller.Poller, logger *zap.Logger) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The returned subscription command is UI plumbing; headless mode
	// reads the result channel directly instead of executing it.
	_ = p.Start()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			p.Stop()
			return
		case msg := <-p.Results():
			if result, ok := msg.(poller.CheckResultMsg); ok && result.Err != nil {
				logger.Warn("poll failed, backing off",
					zap.Error(result.Err),
					zap.Duration("next_delay", result.NextDelay),
				)
			}
		}
	}
}

func secondsDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
