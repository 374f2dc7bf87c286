// Command flowbox serves the box tree pipeline over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"flowbox/internal/config"
	"flowbox/internal/observability"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     *zap.Logger
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"addr":      "server.addr",
	"js":        "js.enabled",
	"sites-dir": "sites_dir",
	"log-level": "logger.level",
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "flowbox",
		Short:         "flowbox turns HTML documents into CSS box trees.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./flowbox.yaml)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	root.AddCommand(newServeCmd(a))
	return root
}

// load reads the configuration, applying flags set on cmd, and builds the
// logger.
func (a *app) load(cmd *cobra.Command) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.v, a.cfg = v, cfg
	a.log = observability.NewLogger(cfg.Logger, nil)
	a.log.Debug("configuration loaded", zap.String("file", v.ConfigFileUsed()), zap.String("version", Version))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "flowbox:", err)
		os.Exit(1)
	}
}
