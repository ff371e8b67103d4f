// stockpulse: relevance-ranked financial news and LLM market insights.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/seenimoa/stockpulse/api"
	"github.com/seenimoa/stockpulse/internal/analysis/relevance"
	"github.com/seenimoa/stockpulse/internal/config"
	"github.com/seenimoa/stockpulse/internal/insight"
	"github.com/seenimoa/stockpulse/internal/reference"
	"github.com/seenimoa/stockpulse/internal/report"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global state set up by the root command.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stockpulse",
	Short: "stockpulse: relevance-ranked financial news and market insights",
	Long: `stockpulse fetches financial news from NewsAPI, GNews and RSS feeds,
ranks it by relevance to a ticker, compresses it into a bounded context and
asks a generative model (Gemini or Ollama) for a structured market insight.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal; real environment variables still apply.
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = newLogger(cfg.Logging)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)

	for _, c := range []*cobra.Command{newsCmd, contextCmd, insightCmd} {
		c.Flags().Int("lookback", 0, "lookback window in days (default from config)")
		c.Flags().Int("max", 0, "maximum number of articles (default from config)")
		c.Flags().Bool("json", false, "print the raw JSON result")
	}
}

// newLogger builds the process logger from the logging section.
func newLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// params reads --lookback and --max over the configured defaults.
func params(cmd *cobra.Command) insight.Params {
	p := insight.Params{
		LookbackDays: cfg.Context.LookbackDays,
		MaxArticles:  cfg.Context.MaxArticles,
	}
	if v, _ := cmd.Flags().GetInt("lookback"); v != 0 {
		p.LookbackDays = v
	}
	if v, _ := cmd.Flags().GetInt("max"); v != 0 {
		p.MaxArticles = v
	}
	return p
}

// build wires the pipeline for a one-shot command.
func build(ctx context.Context) (*insight.Components, error) {
	return insight.Build(ctx, cfg, logger)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stockpulse %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [symbol]",
	Short: "List recent news for a ticker, ranked by relevance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer comps.Close()

		scored, err := comps.Service.SearchNews(cmd.Context(), args[0], params(cmd))
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(scored)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SCORE\tDATE\tSOURCE\tTITLE")
		for _, sa := range scored {
			fmt.Fprintf(tw, "%.1f\t%s\t%s\t%s\n",
				sa.Score, sa.Article.PublishedAt.Format("2006-01-02"), sa.Article.SourceName, sa.Article.Title)
		}
		return tw.Flush()
	},
}

// --- Context Command ---

var contextCmd = &cobra.Command{
	Use:   "context [symbol or question]",
	Short: "Print the compressed news context for a ticker or question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer comps.Close()

		res, err := comps.Service.GetInsightContext(cmd.Context(), strings.Join(args, " "), params(cmd))
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(res)
		}

		fmt.Println(res.Context.SummaryText)
		fmt.Println()
		fmt.Printf("~%d tokens, %d articles, tone %s (%.2f)\n",
			res.Tokens, res.Context.ArticleCount, res.Tone.Label, res.Tone.Score)
		return nil
	},
}

// --- Insight Command ---

var insightCmd = &cobra.Command{
	Use:   "insight [symbol or question]",
	Short: "Generate a structured market insight",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer comps.Close()

		res, err := comps.Service.GenerateInsight(cmd.Context(), strings.Join(args, " "), params(cmd))
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(res)
		}
		if name, _ := cmd.Flags().GetString("report"); name != "" {
			return writeReport(cmd, res, name)
		}

		ins := res.Insight
		fmt.Printf("%s\n", res.Target)
		fmt.Printf("  Sentiment:      %s\n", ins.Sentiment)
		fmt.Printf("  Recommendation: %s\n", ins.Recommendation)
		fmt.Printf("  Risk:           %s\n", ins.RiskLevel)
		fmt.Printf("  Confidence:     %d%%\n", ins.Confidence)
		fmt.Println("  Key points:")
		for _, kp := range ins.KeyPoints {
			fmt.Printf("    - %s\n", kp)
		}
		if len(res.Citations) > 0 {
			fmt.Println("  Sources:")
			for i, c := range res.Citations {
				fmt.Printf("    [%d] %s (%s) %s\n", i+1, c.Title, c.SourceName, c.URL)
			}
		}
		fmt.Printf("  via %s/%s", res.Provider, res.Model)
		if res.Cached {
			fmt.Print(" (cached)")
		}
		fmt.Println()
		return nil
	},
}

// writeReport renders res and writes it to --out, or stdout.
func writeReport(cmd *cobra.Command, res *insight.Result, name string) error {
	format, err := report.ParseFormat(name)
	if err != nil {
		return err
	}
	rcfg := report.DefaultReportConfig()
	rcfg.Format = format
	rcfg.ShowContext, _ = cmd.Flags().GetBool("show-context")

	out, err := report.Generate(res, rcfg)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("report written", "path", path, "format", format)
	return nil
}

// --- Symbols Command ---

var symbolsCmd = &cobra.Command{
	Use:   "symbols [text]",
	Short: "Extract candidate ticker symbols from free text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex := relevance.NewExtractor(reference.Default())
		for _, sym := range ex.ExtractSymbols(strings.Join(args, " ")) {
			fmt.Println(sym)
		}
		return nil
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		comps, err := build(cmd.Context())
		if err != nil {
			return err
		}
		defer comps.Close()

		addr := cfg.API.Addr()
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			addr = fmt.Sprintf("%s:%d", cfg.API.Host, port)
		}

		srv := api.NewServer(cfg, comps, logger)
		srv.SetVersion(version)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	insightCmd.Flags().String("report", "", "render a report instead (text, html, markdown)")
	insightCmd.Flags().String("out", "", "write the report to this file instead of stdout")
	insightCmd.Flags().Bool("show-context", false, "include the compressed news context in the report")

	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  stockpulse: System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (UTC):    %s\n", time.Now().UTC().Format(time.RFC3339))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		model := cfg.LLM.Model
		if model == "" {
			model = "provider default"
		}
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, model)
		fmt.Printf("    Context:       %d %s, %d days, %d articles\n",
			cfg.Context.Budget, cfg.Context.Unit, cfg.Context.LookbackDays, cfg.Context.MaxArticles)
		fmt.Printf("    Cache:         %s (ttl %s)\n", cfg.Cache.Backend, cfg.Cache.TTL())
		fmt.Printf("    RSS Tier:      %t\n", cfg.News.RSS.Enabled)
		fmt.Printf("    API Server:    %s\n", cfg.API.Addr())
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			switch {
			case k.Usable():
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			case k.IsSet:
				status = fmt.Sprintf("⚠️  placeholder (%s)", k.Source)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
