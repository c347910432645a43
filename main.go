package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"callScope/config"
)

var rootCmd = &cobra.Command{
	Use:           "callscope",
	Short:         "Call-level profiler for function tables",
	Long:          "callscope instruments named functions, counts calls and time per function and per caller/callee pair, and ships the results to Pyroscope and a relay.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func printWelcomeBanner(w io.Writer, cfg *config.Config) {
	bannerLines := []string{
		"   ____      _ _ ____                        ",
		"  / ___|__ _| | / ___|  ___ ___  _ __   ___ ",
		" | |   / _` | | \\___ \\ / __/ _ \\| '_ \\ / _ \\",
		" | |__| (_| | | |___) | (_| (_) | |_) |  __/",
		"  \\____\\__,_|_|_|____/ \\___\\___/| .__/ \\___|",
		"                                |_|         ",
	}

	// Print banner in orange color
	for _, line := range bannerLines {
		fmt.Fprintln(w, "\033[0;33m"+line+"\033[0m")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "🚀 Starting callScope with configuration:")
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	if cfg.PyroscopeURL != "" {
		fmt.Fprintf(w, "📡 Pyroscope URL:      %s\n", cfg.PyroscopeURL)
		fmt.Fprintf(w, "📝 Application Name:   %s\n", cfg.AppName)
	}
	if cfg.RelayURL != "" {
		fmt.Fprintf(w, "📡 Relay URL:          %s\n", cfg.RelayURL)
		fmt.Fprintf(w, "📺 Channel:            %s\n", cfg.Channel)
	}
	fmt.Fprintf(w, "🎯 Targets:            %v\n", cfg.Targets)
	fmt.Fprintf(w, "📏 Max Depth:          %d\n", cfg.MaxDepth)
	fmt.Fprintf(w, "⏱️  Update Interval:    %.2f sec\n", cfg.Interval)
	fmt.Fprintf(w, "⌛ Duration:           %s\n", cfg.Duration)
	fmt.Fprintf(w, "🔄 Concurrent Limit:   %d\n", cfg.ConcurrentLimit)
	if cfg.ExcludePattern != "" {
		fmt.Fprintf(w, "🚫 Exclude Pattern:    %s\n", cfg.ExcludePattern)
	}
	if len(cfg.Tags) > 0 {
		fmt.Fprintf(w, "🏷️  Tags:\n")
		keys := make([]string, 0, len(cfg.Tags))
		for k := range cfg.Tags {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "   ├─ %s: %s\n", k, cfg.Tags[k])
		}
	}
	fmt.Fprintf(w, "🐛 Debug Mode:         %v\n", cfg.Debug)
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
}

// loadConfig reads the config file named by --config and applies env and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds a development logger in debug mode and a production
// logger otherwise, both at the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Debug {
		zcfg = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
