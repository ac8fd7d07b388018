// Command skilllog records a browser-automation session and manages the
// resulting diagnostic reports.
//
// Usage:
//
//	skilllog run -url https://example.com [-config skilllog.yaml] [-upload]
//	skilllog collect [-addr 127.0.0.1:8787] [-dir reports]
//	skilllog inspect mw-error-log-1708700000000.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/skilllog"
	"github.com/hazyhaar/skilllog/browser"
	"github.com/hazyhaar/skilllog/collector"
	"github.com/hazyhaar/skilllog/export"
	"github.com/hazyhaar/skilllog/inspect"
	"github.com/hazyhaar/skilllog/internal/config"
	"github.com/hazyhaar/skilllog/logstore"
	"github.com/hazyhaar/skilllog/redact"
)

const usage = "usage: skilllog [-log-level L] run|collect|inspect [flags]"

func main() {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "run":
		err = runRecord(ctx, logger, args)
	case "collect":
		err = runCollect(ctx, logger, args)
	case "inspect":
		err = runInspect(args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("skilllog: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runRecord(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to skilllog.yaml")
	pageURL := fs.String("url", "", "page to open (required)")
	remote := fs.String("remote", "", "DevTools WebSocket URL of a running Chrome")
	stealth := fs.String("stealth", "", "plain, headless or headful")
	dir := fs.String("dir", "", "directory for the report file")
	upload := fs.Bool("upload", false, "upload the report when the session ends")
	endpoint := fs.String("endpoint", "", "upload endpoint")
	fs.Parse(args)

	if *pageURL == "" {
		return errors.New("run: -url is required")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *remote != "" {
		cfg.Browser.Remote = *remote
	}
	if *stealth != "" {
		cfg.Browser.Stealth = *stealth
	}
	if *dir != "" {
		cfg.Export.Dir = *dir
	}
	if *upload {
		cfg.Export.Upload = true
	}
	if *endpoint != "" {
		cfg.Export.Endpoint = *endpoint
	}

	lvl, err := browser.ParseStealthLevel(cfg.Browser.Stealth)
	if err != nil {
		return err
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          lvl,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		XvfbScreen:       cfg.Browser.XvfbScreen,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		Logger:           logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer mgr.Close()

	redactOpts := []redact.Option{redact.WithMarkedAttributes(cfg.Capture.MarkedAttributes...)}
	if cfg.Capture.Filler != "" {
		redactOpts = append(redactOpts, redact.WithFiller(cfg.Capture.Filler))
	}
	tab, err := browser.OpenTab(ctx, mgr, *pageURL, lvl, browser.WithRedactor(redact.New(redactOpts...)))
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer tab.Close()

	skill := logstore.SkillInfo{
		Identifier: cfg.Skill.Identifier,
		Name:       cfg.Skill.Name,
		Version:    cfg.Skill.Version,
	}
	lg, err := skilllog.Use(ctx, tab, skill,
		skilllog.WithLogger(logger),
		skilllog.WithCaptureTimeout(cfg.Capture.Timeout),
		skilllog.WithPerRecordSnapshot(cfg.Capture.PerRecordSnapshot),
		skilllog.WithPageConsole(cfg.Capture.PageConsoleEnabled()),
		skilllog.WithUploader(export.NewUploader(
			export.WithEndpoint(orDefault(cfg.Export.Endpoint, export.DefaultEndpoint)),
			export.WithLogger(logger),
		)),
	)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	logger.Info("skilllog: recording", "url", *pageURL, "skill", skill.Identifier)
	<-ctx.Done()
	lg.Close()

	path, err := lg.Download(cfg.Export.Dir)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	fmt.Println(path)

	if cfg.Export.Upload {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if !lg.Send(sendCtx, "") {
			logger.Warn("skilllog: upload failed, report kept on disk", "path", path)
		}
	}
	return nil
}

func runCollect(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	configPath := fs.String("config", "", "path to skilllog.yaml")
	addr := fs.String("addr", "", "listen address")
	dir := fs.String("dir", "", "report directory")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Collector.Addr = *addr
	}
	if *dir != "" {
		cfg.Collector.Dir = *dir
	}

	c, err := collector.New(collector.Config{
		Dir:     cfg.Collector.Dir,
		MaxBody: cfg.Collector.MaxBody,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Collector.Addr,
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("collector: listening", "addr", cfg.Collector.Addr, "dir", cfg.Collector.Dir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("collect: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("collector: shutting down")
	return srv.Shutdown(shutCtx)
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	width := fs.Int("width", 100, "wrap width")
	frames := fs.Int("frames", 1, "trace frames per record")
	noSnapshot := fs.Bool("no-snapshot", false, "hide the snapshot outline")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("inspect: expected one report file (or - for stdin)")
	}

	var (
		rep logstore.Report
		err error
	)
	if fs.Arg(0) == "-" {
		rep, err = inspect.Read(os.Stdin)
	} else {
		rep, err = inspect.Load(fs.Arg(0))
	}
	if err != nil {
		return err
	}
	return inspect.Render(os.Stdout, rep, inspect.Options{Width: *width, Frames: *frames, NoSnapshot: *noSnapshot})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
