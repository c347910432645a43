package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"callScope/collector"
	"callScope/converter"
	"callScope/processor"
	"callScope/profiler"
	"callScope/resolver"
	"callScope/sender"
	"callScope/workload"
)

// workloadPause separates workload iterations.
const workloadPause = 10 * time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Profile the demo workload",
	Long:  "Instrument the demo workload, run it for --duration while shipping per-interval snapshots, then print the function and call graph reports",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Channel == "" {
		cfg.Channel = uuid.NewString()
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	exclude, err := cfg.Exclude()
	if err != nil {
		return err
	}

	root := resolver.NewNamespace()
	w := workload.Register(root)

	p, err := profiler.New(root, cfg.Targets,
		profiler.WithMaxDepth(cfg.MaxDepth),
		profiler.WithLogger(logger),
		profiler.WithExclude(exclude),
		profiler.WithOutput(cmd.OutOrStdout()),
	)
	if err != nil {
		return err
	}

	printWelcomeBanner(cmd.OutOrStdout(), cfg)

	if err := p.Start(); err != nil {
		return fmt.Errorf("starting profiler: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, p.Stop(), p.Report())
	}()

	var pyroscope processor.ProfileSender
	if cfg.PyroscopeURL != "" {
		pyroscope = sender.NewPyroscope(sender.PyroscopeConfig{
			URL:       cfg.PyroscopeURL,
			AuthToken: cfg.AuthToken,
			AppName:   cfg.AppName,
			Tags:      cfg.Tags,
		}, converter.SampleTypeConfig, logger)
	}
	var relay processor.EnvelopeSender
	if cfg.RelayURL != "" {
		relay = sender.NewRelay(cfg.RelayURL, logger)
	}
	proc := processor.New(cfg, pyroscope, relay, logger)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sampleCtx, stopSampling := context.WithCancel(ctx)
	defer stopSampling()

	snapshots, err := collector.New(p, cfg.IntervalDuration(), logger).Start(sampleCtx)
	if err != nil {
		return err
	}

	if err := proc.Log(ctx, fmt.Sprintf("instrumented %v", cfg.Targets)); err != nil {
		logger.Warn("Error relaying message", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return proc.Process(gctx, snapshots)
	})
	g.Go(func() error {
		defer stopSampling()
		n := w.Run(gctx, cfg.Duration, workloadPause)
		logger.Info("Workload finished", zap.Int("iterations", n))
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	batches, failures := proc.Counters()
	logger.Info("Pipeline drained", zap.Int("batches", batches), zap.Int("failures", failures))

	return nil
}
