package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/queue-sim/queue-sim/sim"
)

var (
	configPath string
	logLevel   string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "queue-sim",
	Short: "Discrete-event simulator for open queueing networks",
}

func loadNetworkConfig(path string) (*sim.NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg sim.NetworkConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

func setUpLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runCmd executes a single simulation run from a YAML network config.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setUpLogging()

		cfg, err := loadNetworkConfig(configPath)
		if err != nil {
			logrus.Fatalf("unable to load config: %v", err)
		}

		qs, err := cfg.Build()
		if err != nil {
			logrus.Fatalf("unable to build network: %v", err)
		}

		logrus.Infof("running simulation: %d servers, %d events, warmup=%d",
			len(qs.Servers), cfg.Run.NumEvents, cfg.Run.Warmup)

		meanN, meanT, err := qs.Sim(cfg.Run.ToSimOptions())
		if err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}

		metrics := &sim.RunMetrics{
			MeanN:             meanN,
			MeanT:             meanT,
			PerServerArrived:  make([]int, len(qs.Servers)),
			PerServerRejected: make([]int, len(qs.Servers)),
		}
		for i, s := range qs.Servers {
			metrics.NumCompletions += s.NumCompletions()
			metrics.PerServerArrived[i] = s.NumArrived()
			metrics.PerServerRejected[i] = s.NumRejected()
		}
		metrics.Print()
		logrus.Info("simulation complete.")
	},
}

// replicateCmd runs independent replications and reports the raw outputs.
var replicateCmd = &cobra.Command{
	Use:   "replicate",
	Short: "Run independent replications of a simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setUpLogging()

		cfg, err := loadNetworkConfig(configPath)
		if err != nil {
			logrus.Fatalf("unable to load config: %v", err)
		}

		qs, err := cfg.Build()
		if err != nil {
			logrus.Fatalf("unable to build network: %v", err)
		}

		opts := cfg.Replicate.ToReplicateOptions()
		logrus.Infof("running %d replications across %d servers", opts.NumReplications, len(qs.Servers))

		result, err := qs.Replicate(opts)
		if err != nil {
			logrus.Fatalf("replication failed: %v", err)
		}

		fmt.Println("=== Replication Raw Results ===")
		for i := range result.RawN {
			fmt.Printf("  rep %3d: N=%.6f T=%.6f\n", i, result.RawN[i], result.RawT[i])
		}
	},
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "network.yaml", "Path to the network YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replicateCmd)
}
