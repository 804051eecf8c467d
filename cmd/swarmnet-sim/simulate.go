package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"swarmnet-sim/internal/admin"
	"swarmnet-sim/internal/config"
	"swarmnet-sim/internal/logging"
	"swarmnet-sim/internal/observability"
	"swarmnet-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simJSON       bool
	simTUI        bool
	simVerbose    bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simSeed       int64
	simLogFile    string
	simAdminAddr  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time swarm network simulator",
	Long:  "simulate starts the swarm, moves robots each tick, and routes their datagrams through the link model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if simVerbose {
			level = slog.LevelDebug
		}
		log := logging.NewWithLevel(level)

		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}

		linkWriter, deliveryWriter, cleanup, err := newWriters(cfg, simPrintOnly, simJSON, simTUI, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		clusterID := os.Getenv("CLUSTER_ID")
		if clusterID == "" {
			clusterID = "swarm-01"
		}

		tickInterval := simTick
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			tickInterval = d
		}

		seed := simSeed
		if seed == 0 {
			seed = int64(cfg.Seed)
		}
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		log.Info("starting simulation", "cluster", clusterID, "seed", seed, "tick", tickInterval)

		metrics, err := observability.NewCollector(nil)
		if err != nil {
			return err
		}

		simulator, err := sim.NewSimulator(clusterID, cfg, linkWriter, deliveryWriter, metrics, tickInterval, seed, log)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		srv := admin.NewServer(simulator, metrics, log)
		go func() {
			log.Info("admin API listening", "addr", simAdminAddr)
			if err := srv.Start(simAdminAddr); err != nil && err != http.ErrServerClosed {
				log.Error("admin server failed", "error", err)
			}
		}()

		go simulator.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		log.Info("simulation stopped", "stats", simulator.Stats())
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Print JSON lines instead of human-readable output")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render a live topology TUI")
	simulateCmd.Flags().BoolVar(&simVerbose, "verbose", false, "Enable debug logging")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "", "Path to CUE schema file (defaults to the embedded schema)")
	simulateCmd.Flags().DurationVar(&simTick, "tick", time.Second, "Simulation tick interval (e.g. 100ms, 1s)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed (0 uses the config seed, or wall clock)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export link state logs (JSONL, .gz supported)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin API listen address")
}
