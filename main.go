package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio/api"
	"portfolio/config"
	"portfolio/logging"
	"portfolio/notify"
	"portfolio/storage"
	"portfolio/theme"
)

var (
	dataDir    string
	listen     string
	listenPort int
	siteDir    string
	appVersion = api.Version
)

var rootCmd = &cobra.Command{
	Use:           "portfolio",
	Short:         "portfolio – personal site backend and tools",
	Long:          "Portfolio serves the personal site and its contact/analytics API, and manages themes and queued contact messages from the terminal.",
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend",
	Long:  "Serve the API and, when a site directory is configured, the static site.",
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  "Manage portfolio configuration files.",
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a default configuration file",
	Long:  "Generate a default " + config.FileName + " in the data directory (or current directory if not specified).",
	RunE:  runConfigGenerate,
}

func init() {
	wd, _ := os.Getwd()
	rootCmd.Version = appVersion
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", wd, "Data directory (default: current directory)")

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&listen, "listen", "all", "IP address to listen on (default: all)")
		c.Flags().IntVar(&listenPort, "listen-port", 5000, "Port to listen on")
		c.Flags().StringVar(&siteDir, "site-dir", "", "Directory with the static site")
	}

	configCmd.AddCommand(configGenerateCmd)
	rootCmd.AddCommand(serveCmd, configCmd, themeCmd, contactCmd, analyticsCmd)
}

// loadConfig reads the config from --data-dir and applies flags that were
// set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed("data-dir") || cfg.DataDir == "" || cfg.DataDir == "." {
		cfg.DataDir = dataDir
	}
	if f := cmd.Flags().Lookup("listen"); f != nil && (f.Changed || cmd.Flags().Changed("listen-port")) {
		if listen != "" && listen != "all" {
			cfg.ListenAddr = net.JoinHostPort(listen, fmt.Sprint(listenPort))
		} else {
			cfg.ListenAddr = fmt.Sprintf(":%d", listenPort)
		}
	}
	if f := cmd.Flags().Lookup("site-dir"); f != nil && f.Changed {
		cfg.SiteDir = siteDir
	}

	abs, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = abs
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	local := storage.NewLocal(cfg.DataDir)
	if err := local.EnsureDirs(); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	hub := api.NewHub(cfg.AllowedOrigins, logger)
	notes := notify.NewQueue(hub, nil, logger)
	menu := theme.NewMenuIndicator()
	scope := theme.NewStylesheetScope()
	registry := theme.NewRegistry(scope,
		theme.WithIndicator(menu),
		theme.WithStore(local),
		theme.WithNotifier(notes),
		theme.WithDefault(cfg.DefaultTheme),
		theme.WithLogger(logger),
	)
	registry.Restore()
	defer hub.Follow(registry)()

	opts := []api.Option{
		api.WithHub(hub),
		api.WithThemes(theme.NewHandler(registry).WithMenu(menu).WithStylesheet(scope)),
		api.WithSiteDir(cfg.Resolve(cfg.SiteDir)),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
		api.WithLogger(logger),
	}
	views, err := storage.OpenViewStore(cfg.Resolve(cfg.AnalyticsDB))
	if err != nil {
		logger.Warn("analytics disabled", zap.Error(err))
	} else {
		defer views.Close()
		opts = append(opts, api.WithViewStore(views))
	}
	contacts := storage.NewContactLog(cfg.Resolve(cfg.ContactLog))
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(contacts, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printListeningAddresses(logger, cfg.ListenAddr)
		if cfg.SiteDir != "" {
			logger.Info("serving static site", zap.String("dir", cfg.Resolve(cfg.SiteDir)))
		}
		logger.Info("contact log", zap.String("path", contacts.Path()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		hub.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func runConfigGenerate(cmd *cobra.Command, _ []string) error {
	dataDirAbs, err := filepath.Abs(dataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := config.Default()
	cfg.DataDir = dataDirAbs

	cfgPath := filepath.Join(dataDirAbs, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("config file already exists: %s", cfgPath)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated default config file: %s\n", cfgPath)
	return nil
}

func printListeningAddresses(logger *zap.Logger, addr string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		logger.Info("listening", zap.String("url", "http://"+addr))
		return
	}

	if host != "" && host != "0.0.0.0" && host != "::" {
		logger.Info("listening", zap.String("url", fmt.Sprintf("http://%s", net.JoinHostPort(host, port))))
		return
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		logger.Info("listening", zap.String("url", "http://0.0.0.0:"+port))
		return
	}
	urls := []string{"http://localhost:" + port, "http://127.0.0.1:" + port}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			urls = append(urls, fmt.Sprintf("http://%s:%s", ipnet.IP, port))
		}
	}
	logger.Info("listening", zap.Strings("urls", urls))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
