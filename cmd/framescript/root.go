package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/reglet-dev/framescript/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "framescript",
		Short:         "Run frame scripts against a drawing surface",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(v); err != nil {
				return err
			}
			if v.GetBool("no-color") {
				color.NoColor = true
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.framescript.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn or error")
	pf.String("log-format", "console", "log format: console or json")
	pf.Bool("no-color", false, "disable colored output")
	_ = v.BindPFlags(pf)

	root.AddCommand(
		newRunCmd(v),
		newOpsCmd(),
		newVersionCmd(),
	)
	return root
}

// initConfig layers environment variables and the optional config file
// under the command-line flags.
func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix("FRAMESCRIPT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(".framescript")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	level, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	return log.New(
		log.WithLevel(level),
		log.WithFormat(log.Format(v.GetString("log-format"))),
	)
}
