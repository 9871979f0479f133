// Command csidhctl generates keys, runs walks and serves key exchanges.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/op/go-logging.v1"

	"github.com/smallyu/go-csidh/internal/config"
	"github.com/smallyu/go-csidh/internal/instrument"
	"github.com/smallyu/go-csidh/internal/log"
	"github.com/smallyu/go-csidh/internal/params"
)

// Options holds the global command line flags.
type Options struct {
	ConfigFile string
	ParamSet   string
	LogLevel   string
}

// env is the state shared by the subcommands once flags are parsed.
type env struct {
	cfg     *config.Config
	params  *params.Params
	backend *log.Backend
	log     *logging.Logger
}

func (e *env) logger(module string) *logging.Logger {
	return e.backend.GetLogger(module)
}

func setup(opts *Options) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadFile(opts.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file '%v': %v", opts.ConfigFile, err)
		}
	} else {
		cfg = config.Default()
	}
	if opts.ParamSet != "" {
		cfg.Parameters = &config.Parameters{Name: opts.ParamSet}
		if err := cfg.FixupAndValidate(); err != nil {
			return nil, err
		}
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
		if err := cfg.FixupAndValidate(); err != nil {
			return nil, err
		}
	}

	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}
	ps, err := params.FromConfig(cfg.Parameters)
	if err != nil {
		return nil, err
	}
	instrument.Init()
	return &env{
		cfg:     cfg,
		params:  ps,
		backend: backend,
		log:     backend.GetLogger("csidhctl"),
	}, nil
}

func newRootCommand() *cobra.Command {
	var opts Options
	e := new(env)

	cmd := &cobra.Command{
		Use:   "csidhctl",
		Short: "Commutative isogeny key exchange tool",
		Long: `csidhctl works with the commutative isogeny key exchange: it generates
key pairs, derives shared secrets, walks the isogeny graph one prime at a
time and runs an HTTP exchange service backed by a key database.`,
		Example: `  # Show the built-in parameter sets
  csidhctl params --all

  # Generate a key pair as PEM files
  csidhctl keygen --out alice

  # Derive a shared secret
  csidhctl derive --key alice.priv.pem --peer bob.pub.pem

  # Walk three steps of degree 5
  csidhctl walk --l 5 --k 3

  # Serve exchanges with a configuration file
  csidhctl serve --config csidh.toml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := setup(&opts)
			if err != nil {
				return err
			}
			*e = *loaded
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "f", "",
		"path to the configuration file (TOML format)")
	cmd.PersistentFlags().StringVarP(&opts.ParamSet, "params", "p", "",
		"built-in parameter set, overriding the configuration")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "",
		"log level: ERROR, WARNING, NOTICE, INFO or DEBUG")

	cmd.AddCommand(
		newParamsCommand(e),
		newKeygenCommand(e),
		newPubkeyCommand(e),
		newDeriveCommand(e),
		newWalkCommand(e),
		newServeCommand(e),
		newExchangeCommand(e),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
