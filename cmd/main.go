// Package main is the entry point for the Paraphrase Gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/compresr/paraphrase-gateway/internal/config"
	"github.com/compresr/paraphrase-gateway/internal/gateway"
	"github.com/compresr/paraphrase-gateway/internal/monitoring"
	"github.com/compresr/paraphrase-gateway/internal/paraphrase"
	"github.com/compresr/paraphrase-gateway/internal/phrases"
)

// ASCII banner for startup
const banner = `
 ┌─┐┌─┐┬─┐┌─┐┌─┐┬ ┬┬─┐┌─┐┌─┐┌─┐  ┌─┐┌─┐┌┬┐┌─┐┬ ┬┌─┐┬ ┬
 ├─┘├─┤├┬┘├─┤├─┘├─┤├┬┘├─┤└─┐├┤   │ ┬├─┤ │ ├┤ │││├─┤└┬┘
 ┴  ┴ ┴┴└─┴ ┴┴  ┴ ┴┴└─┴ ┴└─┘└─┘  └─┘┴ ┴ ┴ └─┘└┴┘┴ ┴ ┴
`

func printBanner() {
	color.New(color.FgGreen, color.Bold).Fprint(os.Stderr, banner)
}

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/paraphrase-gateway/.env first
	configEnv := filepath.Join(homeDir, ".config", "paraphrase-gateway", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

func main() {
	if len(os.Args) < 2 {
		runGatewayServer(nil)
		return
	}

	switch os.Args[1] {
	case "serve", "start":
		runGatewayServer(os.Args[2:])
	case "simplify":
		os.Exit(runSimplify(os.Args[2:], os.Stdin, os.Stdout))
	case "seed":
		os.Exit(runSeed(os.Args[2:]))
	case "phrases":
		os.Exit(runPhrases(os.Args[2:], os.Stdout))
	case "version", "-v", "--version":
		PrintVersion()
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(2)
	}
}

// =============================================================================
// CONFIG
// =============================================================================

// resolveConfig resolves the config for a command.
// Checks: user flag -> filesystem locations -> embedded config.
// Returns raw bytes and source description.
func resolveConfig(userConfig string) ([]byte, string, error) {
	if userConfig != "" {
		data, err := os.ReadFile(userConfig)
		if err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", userConfig)
		}
		return data, userConfig, nil
	}

	var searchPaths []string
	if homeDir, _ := os.UserHomeDir(); homeDir != "" {
		searchPaths = append(searchPaths,
			filepath.Join(homeDir, ".config", "paraphrase-gateway", "paraphrase.yaml"),
		)
	}
	searchPaths = append(searchPaths, "configs/paraphrase.yaml")

	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			return data, path, nil
		}
	}

	data, err := getEmbeddedConfig(defaultConfigName)
	if err != nil {
		return nil, "", fmt.Errorf("no config file found. Specify --config path")
	}
	return data, "(embedded) " + defaultConfigName + ".yaml", nil
}

// loadConfig resolves, parses and validates the config, then installs the
// configured logger. One-shot commands keep stdout for their output, so
// their logs go to stderr.
func loadConfig(userConfig string, debug, oneShot bool) (*config.Config, *monitoring.Logger, error) {
	data, source, err := resolveConfig(userConfig)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.LoadFromBytes(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}

	lc := cfg.Monitoring.Logger()
	if debug {
		lc.Level = "debug"
	}
	if oneShot && (lc.Output == "" || lc.Output == "stdout") {
		lc.Output = "stderr"
	}
	logger := monitoring.Global(lc)
	// From here on the configured logger level governs.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log.Debug().Str("config", source).Msg("configuration loaded")
	return cfg, logger, nil
}

// setupLogging configures zerolog until the config is loaded.
func setupLogging(debug bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// =============================================================================
// SERVE
// =============================================================================

// runGatewayServer starts the HTTP/WebSocket gateway.
func runGatewayServer(args []string) {
	loadEnvFiles()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	noBanner := fs.Bool("no-banner", false, "suppress startup banner")
	_ = fs.Parse(args) // ExitOnError handles errors

	if !*noBanner {
		printBanner()
	}

	setupLogging(*debug)

	cfg, logger, err := loadConfig(*configPath, *debug, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	defer logger.Close()

	log.Info().
		Str("version", Version).
		Int("port", cfg.Server.Port).
		Str("store", cfg.Store.Type).
		Str("cache", cfg.Cache.Type).
		Str("tokenizer", cfg.Tokenizer.Strategy).
		Bool("passive_voice", cfg.Engine.PassiveVoice).
		Msg("Paraphrase Gateway starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}
	defer a.Close()

	if err := a.watchSeed(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to watch seed file")
	}

	gw := gateway.New(cfg, a.service, logger)

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")

		timeout := cfg.Server.ShutdownTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := gw.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	if err := gw.Start(); err != nil {
		log.Error().Err(err).Msg("gateway error")
		return
	}

	log.Info().Msg("Paraphrase Gateway stopped")
}

// =============================================================================
// SIMPLIFY
// =============================================================================

// runSimplify simplifies --text or piped stdin and prints the result.
func runSimplify(args []string, stdin *os.File, stdout io.Writer) int {
	loadEnvFiles()

	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	text := fs.String("text", "", "text to simplify (default: read stdin)")
	debug := fs.Bool("debug", false, "enable debug logging")
	quiet := fs.Bool("quiet", false, "print only the simplified text")
	_ = fs.Parse(args)

	setupLogging(*debug)

	input := *text
	if input == "" && fs.NArg() > 0 {
		input = strings.Join(fs.Args(), " ")
	}
	if input == "" {
		if term.IsTerminal(int(stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "nothing to simplify: pass --text or pipe text on stdin")
			return 2
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read stdin: %v\n", err)
			return 1
		}
		input = string(data)
	}

	cfg, logger, err := loadConfig(*configPath, *debug, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()

	res, err := a.service.Simplify(ctx, input, monitoring.SourceCLI)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Fprintln(stdout, res.SimplifiedText)
	if !*quiet {
		printMetrics(os.Stderr, res)
	}
	return 0
}

// printMetrics writes a one-line, coloured token summary.
func printMetrics(w io.Writer, res paraphrase.Result) {
	m := res.TokenMetrics
	saved := color.New(color.FgGreen, color.Bold).SprintFunc()
	if m.TokensSaved <= 0 {
		saved = color.New(color.FgYellow).SprintFunc()
	}
	line := fmt.Sprintf("tokens: %d -> %d, saved %s",
		m.OriginalTokenCount, m.SimplifiedTokenCount,
		saved(fmt.Sprintf("%d (%.1f%%)", m.TokensSaved, m.PercentSaved)))
	if m.Estimated {
		line += color.New(color.Faint).Sprint(" [estimated]")
	}
	fmt.Fprintln(w, line)
}

// =============================================================================
// SEED / PHRASES
// =============================================================================

// runSeed replaces every rule in the configured store with a seed file.
func runSeed(args []string) int {
	loadEnvFiles()

	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	file := fs.String("file", "", "seed YAML file (default: embedded phrases)")
	list := fs.Bool("list", false, "list embedded seed files and exit")
	_ = fs.Parse(args)

	setupLogging(false)

	if *list {
		names, err := listEmbeddedRules()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return 0
	}

	rules, source, err := loadSeed(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, logger, err := loadConfig(*configPath, false, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()

	if err := a.service.ResetRules(ctx, rules); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		return 1
	}
	fmt.Printf("seeded %d phrases from %s\n", len(rules), source)
	return 0
}

// runPhrases lists the rules in the configured store.
func runPhrases(args []string, stdout io.Writer) int {
	loadEnvFiles()

	fs := flag.NewFlagSet("phrases", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	setupLogging(false)

	cfg, logger, err := loadConfig(*configPath, false, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()

	rules, err := a.service.ListRules(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printRules(stdout, rules)
	return 0
}

func printRules(w io.Writer, rules []phrases.Rule) {
	category := color.New(color.FgCyan).SprintfFunc()
	deleted := color.New(color.Faint).Sprint("(delete)")
	for _, r := range rules {
		simplified := r.Simplified
		if r.IsDeletion() {
			simplified = deleted
		}
		fmt.Fprintf(w, "%-13s %q -> %s\n", category("%s", r.Category), r.Original, simplified)
	}
	fmt.Fprintf(w, "%d phrases\n", len(rules))
}

// printHelp prints usage information
func printHelp() {
	printBanner()
	fmt.Println("Paraphrase Gateway - rule-based prompt simplification")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  paraphrase-gateway [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve        Start the HTTP/WebSocket gateway (default)")
	fmt.Println("  simplify     Simplify --text or stdin and print token savings")
	fmt.Println("  seed         Replace stored phrases with a seed file")
	fmt.Println("  phrases      List stored phrases")
	fmt.Println("  version      Print version information")
	fmt.Println("  help         Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  serve    [--config FILE] [--debug] [--no-banner]")
	fmt.Println("  simplify [--config FILE] [--text TEXT] [--quiet] [--debug]")
	fmt.Println("  seed     [--config FILE] [--file FILE] [--list]")
	fmt.Println("  phrases  [--config FILE]")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  paraphrase-gateway serve")
	fmt.Println("  echo \"I would like to utilize this\" | paraphrase-gateway simplify")
	fmt.Println("  paraphrase-gateway seed --file my_phrases.yaml")
}
