// Package commands implements the habitat command line
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JelinR/habitat-lab/config"
	"github.com/JelinR/habitat-lab/logging"
	"github.com/JelinR/habitat-lab/metrics"
)

// Version is set at build time with -ldflags
var Version = "dev"

// globalFlags are the flags shared by every subcommand
type globalFlags struct {
	configPath  string
	metricsAddr string
	logLevel    string
	logFormat   string
}

// NewRootCommand returns the habitat command writing results to stdout
// and logs to stderr
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "habitat",
		Short: "Train point goal navigation agents and evaluate checkpoints",
		Long: `habitat trains navigation agents with reinforcement learning.

Settings come from defaults, the --config YAML file, HABITAT_ environment
variables and trailing key=value overrides, in increasing priority:

  habitat train --config pointnav.yaml num_updates=200 rl.vpg.lr=0.01`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "",
		"serve Prometheus metrics at this address")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format (text or json)")

	root.AddCommand(
		newTrainCommand(&flags),
		newEvalCommand(&flags),
		newFollowCommand(&flags),
		newConfigCommand(&flags),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "habitat %s\n", Version)
		},
	}
}

// runtime is what every command that runs a trainer needs
type runtime struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Collectors
	server  *metrics.Server
}

// setup loads the config with the trailing overrides in args and
// builds the logger and metrics of a run
func (f *globalFlags) setup(ctx context.Context, cmd *cobra.Command,
	args []string) (*runtime, error) {
	opts := append([]string(nil), args...)
	if f.logLevel != "" {
		opts = append(opts, "logging.level="+f.logLevel)
	}
	if f.logFormat != "" {
		opts = append(opts, "logging.format="+f.logFormat)
	}
	if f.metricsAddr != "" {
		opts = append(opts, "metrics.addr="+f.metricsAddr)
	}

	c, err := config.Load(f.configPath, opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), c.Logging)
	if err != nil {
		return nil, err
	}

	rt := &runtime{config: c, logger: logger, metrics: metrics.NewCollectors()}
	if c.Metrics.Addr != "" {
		rt.server, err = metrics.NewServer(ctx, c.Metrics.Addr, rt.metrics,
			logger)
		if err != nil {
			return nil, err
		}
		logger.Info("serving metrics", "addr", rt.server.Addr())
	}
	return rt, nil
}

// close stops the metrics server if one was started
func (r *runtime) close() error {
	if r.server == nil {
		return nil
	}
	return r.server.Close()
}
