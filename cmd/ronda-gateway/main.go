// ABOUTME: Entry point for the ronda-gateway support bot
// ABOUTME: Wires the store, provider sessions, audio pipeline and Matrix bridge

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/adanzweig/ronda-backend/internal/audio"
	"github.com/adanzweig/ronda-backend/internal/bot"
	"github.com/adanzweig/ronda-backend/internal/config"
	"github.com/adanzweig/ronda-backend/internal/dedupe"
	"github.com/adanzweig/ronda-backend/internal/session"
	"github.com/adanzweig/ronda-backend/internal/store"
	"github.com/adanzweig/ronda-backend/internal/transport"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                     _                           _
 _ __ ___  _ __   __| | __ _        __ _  __ _| |_ _____      ____ _ _   _
| '__/ _ \| '_ \ / _' |/ _' |_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| | | (_) | | | | (_| | (_| |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
|_|  \___/|_| |_|\__,_|\__,_|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                                   |___/                             |___/
`

// Dedupe tracker defaults used when the config leaves them unset.
const (
	defaultDedupeTTL        = 5 * time.Minute
	defaultDedupeMaxEntries = 50_000
)

// getConfigPath returns the path to the gateway config file.
// Priority: RONDA_CONFIG env var > XDG_CONFIG_HOME/ronda/gateway.yaml > ~/.config/ronda/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("RONDA_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ronda", "gateway.yaml")
}

// getDataPath returns the path to the ronda data directory.
// Priority: XDG_DATA_HOME/ronda > ~/.local/share/ronda
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "ronda")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ronda-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve       Start the gateway")
		fmt.Println("  init        Create a new config file interactively")
		fmt.Println("  seed-queue  Create or update the AI settings for a queue")
		fmt.Println("  health      Check database health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "seed-queue":
		err = runSeedQueue(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	fmt.Println()

	logger.Info("starting ronda-gateway",
		"config", configPath,
		"database", cfg.Database.Path,
		"homeserver", cfg.Matrix.Homeserver,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	registry := session.NewRegistry(nil, cfg.Session.IdleTTL, logger)
	defer registry.Close()

	var synth audio.Synthesizer
	if cfg.Speech.APIKey != "" {
		synth, err = audio.NewOpenAISpeech(cfg.Speech.APIKey)
		if err != nil {
			return fmt.Errorf("creating speech client: %w", err)
		}
	} else {
		logger.Warn("no speech api key configured, voice replies will fall back to text")
	}
	pipeline := audio.NewPipeline(synth, cfg.Media.Root, logger)

	dedupeTTL := cfg.Dedupe.TTL
	if dedupeTTL <= 0 {
		dedupeTTL = defaultDedupeTTL
	}
	dedupeMax := cfg.Dedupe.MaxEntries
	if dedupeMax <= 0 {
		dedupeMax = defaultDedupeMaxEntries
	}
	seen := dedupe.NewTracker(dedupeTTL, dedupeMax)
	defer seen.Close()

	bridge, err := transport.NewBridge(cfg, st, nil, seen, logger)
	if err != nil {
		return fmt.Errorf("creating matrix bridge: %w", err)
	}

	orch := bot.New(registry, st, bridge, pipeline, logger)
	bridge.SetHandler(orch)

	return bridge.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{level: level})
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu    sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	writeAttr := func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{level: h.level, attrs: newAttrs}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return h
}

// runHealth opens the configured database and reports whether the schema
// is reachable.
func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("unhealthy: %w", err)
	}
	defer st.Close()

	if _, err := st.TicketMessages(ctx, 0, 1); err != nil {
		return fmt.Errorf("unhealthy: %w", err)
	}

	fmt.Println("healthy")
	return nil
}

// runSeedQueue creates or updates the bot settings row for a queue so a
// fresh deployment can answer messages without manual SQL.
func runSeedQueue(ctx context.Context) error {
	fs := flag.NewFlagSet("seed-queue", flag.ContinueOnError)
	queueID := fs.Int64("queue", 0, "queue id (required)")
	name := fs.String("name", "", "assistant display name")
	model := fs.String("model", "gpt-4o", "chat model")
	prompt := fs.String("prompt", "", "business context for the system prompt")
	voice := fs.String("voice", "texto", "synthesis voice, or \"texto\" for text-only replies")
	maxTokens := fs.Int("max-tokens", 300, "completion token cap")
	temperature := fs.Float64("temperature", 1.0, "sampling temperature")
	apiKey := fs.String("api-key", "", "provider api key (required)")
	maxMessages := fs.Int("max-messages", 20, "history messages per prompt")

	if err := fs.Parse(os.Args[2:]); err != nil {
		return err
	}
	if *queueID <= 0 {
		return fmt.Errorf("--queue is required")
	}
	if *apiKey == "" {
		return fmt.Errorf("--api-key is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	settings := &store.BotSettings{
		QueueID:     *queueID,
		Name:        *name,
		Model:       *model,
		Prompt:      *prompt,
		Voice:       *voice,
		MaxTokens:   *maxTokens,
		Temperature: *temperature,
		APIKey:      *apiKey,
		MaxMessages: *maxMessages,
	}
	if err := st.UpsertBotSettings(ctx, settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Queue %d configured (model %s)\n", *queueID, *model)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("ronda-gateway configuration setup")
	fmt.Println("=================================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "ronda.db")
	defaultMediaPath := filepath.Join(defaultDataPath, "media")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Storage Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)
	mediaRoot := prompt(reader, "Media root directory", defaultMediaPath)

	fmt.Println("\n--- Tenant Configuration ---")
	companyID := prompt(reader, "Company id", "1")
	queueID := prompt(reader, "Default queue id", "1")

	fmt.Println("\n--- Matrix Configuration ---")
	homeserver := prompt(reader, "Homeserver URL", "https://matrix.org")
	userID := prompt(reader, "Bot user id", "@ronda:matrix.org")
	accessToken := prompt(reader, "Access token (leave empty to use ${RONDA_MATRIX_TOKEN})", "")
	if accessToken == "" {
		accessToken = "${RONDA_MATRIX_TOKEN}"
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# ronda-gateway configuration\n")
	cfg.WriteString("# Generated by ronda-gateway init\n\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("media:\n")
	cfg.WriteString(fmt.Sprintf("  root: \"%s\"\n", mediaRoot))
	cfg.WriteString("\n")

	cfg.WriteString("tenant:\n")
	cfg.WriteString(fmt.Sprintf("  company_id: %s\n", companyID))
	cfg.WriteString(fmt.Sprintf("  default_queue_id: %s\n", queueID))
	cfg.WriteString("\n")

	cfg.WriteString("matrix:\n")
	cfg.WriteString(fmt.Sprintf("  homeserver: \"%s\"\n", homeserver))
	cfg.WriteString(fmt.Sprintf("  user_id: \"%s\"\n", userID))
	cfg.WriteString(fmt.Sprintf("  access_token: \"%s\"\n", accessToken))
	cfg.WriteString("  allowed_rooms: []\n")
	cfg.WriteString("\n")

	cfg.WriteString("session:\n")
	cfg.WriteString("  idle_ttl: \"1h\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("dedupe:\n")
	cfg.WriteString("  ttl: \"5m\"\n")
	cfg.WriteString("  max_entries: 50000\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	for _, dir := range []string{filepath.Dir(dbPath), mediaRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nNext steps:")
	fmt.Println("  ronda-gateway seed-queue --queue 1 --api-key sk-...   # configure the assistant")
	fmt.Println("  ronda-gateway serve                                   # start the gateway")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
