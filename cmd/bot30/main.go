// bot30 - Urban Terror server status for Discord
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ernie/bot30/internal/api"
	"github.com/ernie/bot30/internal/auth"
	"github.com/ernie/bot30/internal/collector"
	"github.com/ernie/bot30/internal/config"
	"github.com/ernie/bot30/internal/discord"
	"github.com/ernie/bot30/internal/domain"
	"github.com/ernie/bot30/internal/logging"
	"github.com/ernie/bot30/internal/mapcycle"
	"github.com/ernie/bot30/internal/notify"
	"github.com/ernie/bot30/internal/storage"
)

var version = "dev"

const (
	defaultConfigPath = "/etc/bot30/config.yml"
	syncTimeout       = 30 * time.Second
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "current-map":
		err = cmdCurrentMap(os.Args[2:])
	case "mapcycle":
		err = cmdMapCycle(os.Args[2:])
	case "status":
		err = cmdStatus(os.Args[2:])
	case "serve":
		err = cmdServe(os.Args[2:])
	case "token":
		err = cmdToken(os.Args[2:])
	case "version":
		fmt.Printf("bot30 %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: bot30 <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  current-map              Update the current map embed while players are online")
	fmt.Println("  mapcycle [--file path]   Update the map cycle embed")
	fmt.Println("  status [--host h] [--port n]")
	fmt.Println("                           Query the game server once and print the roster")
	fmt.Println("  serve                    Poll continuously and serve the HTTP API")
	fmt.Println("  token [--operator name] [--scope s]")
	fmt.Println("                           Issue an API token")
	fmt.Println("  version                  Show version")
	fmt.Println("  help                     Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/bot30/config.yml if present)")
	fmt.Println()
	fmt.Println("Environment variables override the config file, e.g. BOT_TOKEN,")
	fmt.Println("GAME_SERVER_IP, GAME_SERVER_PORT, GAME_SERVER_RCON_PASS, MAPCYCLE_FILE.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  bot30 current-map --config ./config.yml")
	fmt.Println("  bot30 status --host 203.0.113.7 --port 27961")
	fmt.Println("  bot30 token --operator ops --scope refresh")
}

// resolveConfigPath falls back to the default path when it exists. With
// neither, configuration comes from the environment alone.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// setup loads configuration and builds the logger
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func target(cfg *config.Config) collector.Target {
	return collector.Target{
		Name:     cfg.GameServer.Name,
		Host:     cfg.GameServer.Host,
		Port:     cfg.GameServer.Port,
		Password: cfg.GameServer.RconPassword,
		Timeout:  cfg.GameServer.Timeout,
		Retries:  cfg.GameServer.Retries,
	}
}

// openStore opens the database when one is configured. The returned
// close func is always safe to call.
func openStore(cfg *config.Config, logger *zap.Logger) (*storage.Store, func(), error) {
	if cfg.Database.Path == "" {
		return nil, func() {}, nil
	}
	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing database: %w", err)
	}
	logger.Info("database initialized", zap.String("path", cfg.Database.Path))
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}, nil
}

// newSyncer builds a Discord syncer. ledger may be nil.
func newSyncer(cfg *config.Config, ledger discord.Ledger, logger *zap.Logger) (*discord.Syncer, error) {
	if cfg.Discord.Token == "" {
		return nil, errors.New("discord token not configured (BOT_TOKEN)")
	}
	if cfg.Discord.Guild == "" || cfg.Discord.Channel == "" {
		return nil, errors.New("discord guild and channel must be configured (BOT_SERVER_NAME, CHANNEL_NAME_MAPCYCLE)")
	}
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	return discord.NewSyncer(session, ledger, discord.SyncerConfig{
		Guild:        cfg.Discord.Guild,
		Channel:      cfg.Discord.Channel,
		BotUser:      cfg.Discord.BotUser,
		HistoryLimit: cfg.Discord.HistoryLimit,
		EditInterval: cfg.Discord.EditInterval,
	}, logger.Named("discord")), nil
}

// connectNATS connects the publisher when a URL is configured
func connectNATS(cfg *config.Config, logger *zap.Logger) (*notify.Publisher, func()) {
	if cfg.NATS.URL == "" {
		return nil, func() {}
	}
	pub, err := notify.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger.Named("nats"))
	if err != nil {
		// Publishing is best effort; the bot still works without it
		logger.Warn("nats unavailable, publishing disabled", zap.Error(err))
		return nil, func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("failed to close nats connection", zap.Error(err))
		}
	}
}

// updaterOptions wires the optional sinks. Typed nils must not reach the
// updater's interfaces.
func updaterOptions(syncer *discord.Syncer, store *storage.Store, pub *notify.Publisher, logger *zap.Logger) []collector.UpdaterOption {
	opts := []collector.UpdaterOption{collector.WithUpdaterLogger(logger)}
	if syncer != nil {
		opts = append(opts, collector.WithSyncer(syncer))
	}
	if store != nil {
		opts = append(opts, collector.WithStore(store))
	}
	if pub != nil {
		opts = append(opts, collector.WithPublisher(pub))
	}
	return opts
}

// ledgerFor avoids handing a typed nil store to the syncer
func ledgerFor(store *storage.Store) discord.Ledger {
	if store == nil {
		return nil
	}
	return store
}

// cmdCurrentMap keeps the current map embed up to date while anyone is
// playing, for at most the configured max run time
func cmdCurrentMap(args []string) error {
	fs := flag.NewFlagSet("current-map", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	syncer, err := newSyncer(cfg, ledgerFor(store), logger)
	if err != nil {
		return err
	}
	pub, closeNATS := connectNATS(cfg, logger)
	defer closeNATS()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Updater.MaxRunTime)
	defer cancel()

	logger.Info("current map updater start",
		zap.String("server", cfg.GameServer.Host),
		zap.Duration("max_run_time", cfg.Updater.MaxRunTime))

	updater := collector.NewUpdater(
		collector.NewRconQuerier(logger.Named("rcon")),
		target(cfg),
		collector.UpdaterConfig{
			UpdateDelay: cfg.Updater.UpdateDelay,
			Title:       cfg.Discord.CurrentMapTitle,
		},
		updaterOptions(syncer, store, pub, logger)...,
	)
	if err := updater.Run(ctx); err != nil {
		return err
	}
	logger.Info("current map updater end")
	return nil
}

// cmdMapCycle publishes the map cycle embed once
func cmdMapCycle(args []string) error {
	fs := flag.NewFlagSet("mapcycle", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	file := fs.String("file", "", "map cycle file (overrides config)")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path := *file
	if path == "" {
		path = cfg.MapCycle.File
	}
	if path == "" {
		return errors.New("map cycle file not configured (MAPCYCLE_FILE)")
	}

	logger.Info("creating map cycle embed", zap.String("file", path))
	cycle, err := mapcycle.ParseFile(path)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	syncer, err := newSyncer(cfg, ledgerFor(store), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	action, err := syncer.Sync(ctx, discord.MapCycleEmbed(cfg.Discord.MapCycleTitle, cycle, time.Now()))
	if err != nil {
		return err
	}
	logger.Info("map cycle embed synced", zap.Stringer("action", action), zap.Int("maps", len(cycle)))
	return nil
}

// cmdStatus queries the server once and prints the result as tables
func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	host := fs.String("host", "", "game server host (overrides config)")
	port := fs.Int("port", 0, "game server port (overrides config)")
	showIP := fs.Bool("ip", false, "show player IP addresses")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	t := target(cfg)
	if *host != "" {
		t.Host = *host
	}
	if *port != 0 {
		t.Port = *port
	}
	if t.Password == "" {
		if t.Password, err = promptPassword(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := collector.NewRconQuerier(logger.Named("rcon")).QueryServerStatus(ctx, t)
	if err != nil {
		return err
	}
	printStatus(srv, *showIP)
	return nil
}

// promptPassword reads the rcon password without echo when stdin is a
// terminal, else reads one line
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "RCON password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

func printStatus(srv *domain.Server, showIP bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, s := range srv.Settings() {
		fmt.Fprintf(w, "%s:\t%s\n", s.Key, s.Value)
	}
	w.Flush()
	fmt.Println()

	players := srv.Players()
	if len(players) == 0 {
		fmt.Println("No players online")
		return
	}

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "SLOT\tNAME\tTEAM\tK/D/A\tPING\tAUTH"
	if showIP {
		header += "\tIP"
	}
	fmt.Fprintln(w, header)
	for _, p := range players {
		ping := fmt.Sprint(p.Ping)
		if p.Connecting() {
			ping = "CNCT"
		}
		line := fmt.Sprintf("%d\t%s\t%s\t%d/%d/%d\t%s\t%s",
			p.Slot, p.Name, p.Team, p.Score.Kills, p.Score.Deaths, p.Score.Assists, ping, p.Auth)
		if showIP {
			line += "\t" + p.IPAddress
		}
		fmt.Fprintln(w, line)
	}
	w.Flush()
}

// cmdServe polls on a fixed interval and serves the HTTP API
func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	noDiscord := fs.Bool("no-discord", false, "do not update Discord embeds")
	retention := fs.Duration("retention", 7*24*time.Hour, "delete snapshots older than this (0 keeps everything)")
	fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("bot30 starting", zap.String("version", version))

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var syncer *discord.Syncer
	if !*noDiscord {
		if syncer, err = newSyncer(cfg, ledgerFor(store), logger); err != nil {
			return err
		}
	}
	pub, closeNATS := connectNATS(cfg, logger)
	defer closeNATS()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	updater := collector.NewUpdater(
		collector.NewRconQuerier(logger.Named("rcon")),
		target(cfg),
		collector.UpdaterConfig{
			PollInterval: cfg.Updater.PollInterval,
			Title:        cfg.Discord.CurrentMapTitle,
		},
		updaterOptions(syncer, store, pub, logger)...,
	)

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	if !authService.Enabled() {
		logger.Warn("no JWT secret configured, POST /api/refresh is disabled")
	}

	var snapshots api.SnapshotReader
	if store != nil {
		snapshots = store
	}
	router := api.NewRouter(updater, snapshots, authService, cfg.GameServer.Name, logger.Named("api"))
	router.StartWebSocketHub(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		logger.Info("polling", zap.Duration("interval", cfg.Updater.PollInterval))
		updater.Serve(ctx)
	}()

	if store != nil && *retention > 0 {
		go pruneLoop(ctx, store, *retention, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		stop()
		<-pollDone
		return fmt.Errorf("HTTP server: %w", err)
	}

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	<-pollDone
	logger.Info("shutdown complete")
	return nil
}

// pruneLoop deletes old snapshots hourly until ctx is cancelled
func pruneLoop(ctx context.Context, store *storage.Store, retention time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		n, err := store.PruneSnapshots(ctx, time.Now().Add(-retention))
		if err != nil && ctx.Err() == nil {
			logger.Warn("failed to prune snapshots", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned snapshots", zap.Int64("deleted", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cmdToken prints a signed API token
func cmdToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	operator := fs.String("operator", "", "operator name recorded in the token")
	scopes := fs.StringSlice("scope", []string{auth.ScopeRefresh}, "scopes to grant")
	duration := fs.Duration("duration", 0, "token lifetime (default from config)")
	fs.Parse(args)

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	name := *operator
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		return errors.New("--operator is required")
	}

	d := cfg.Auth.TokenDuration
	if *duration > 0 {
		d = *duration
	}
	token, err := auth.NewService(cfg.Auth.JWTSecret, d).GenerateToken(name, *scopes...)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
