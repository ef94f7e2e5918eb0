package main

import (
	"fmt"

	"github.com/goliatone/go-factory/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	keyFile    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "factoryctl",
		Short: "Operate the stablecoin factory record",
		Long: `factoryctl initializes, inspects and reconfigures the factory record of a
deployment. Mutating commands are signed with the operator key and go through
the same request path as remote callers.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.keyFile != "" {
				cfg.KeyFile = a.keyFile
			}
			logger, err := cfg.BuildLogger(a.verbose)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "factoryctl.yaml", "Path to the YAML configuration")
	flags.StringVar(&a.keyFile, "key", "", "Signing key file (overrides key_file)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.keygenCmd(),
		a.addressCmd(),
		a.showCmd(),
		a.initCmd(),
		a.updateCmd(),
		a.pauseCmd(),
		a.resumeCmd(),
		a.reserveCmd(),
		a.signCmd(),
		a.applyCmd(),
		a.layoutCmd(),
	)
	return root
}

func (a *app) printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
