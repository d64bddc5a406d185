package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"redditfrost/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
	appCfg   config.Config
	logClose = func() error { return nil }
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "redditfrost",
	Short: "Reddit engagement hunter",
	Long:  "Finds relevant Reddit posts for a persona, drafts replies, and posts them under a warm-up cap.",
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logClose() }()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level (debug, info, warn, error)")
}

func initConfig() {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/redditfrost")
		v.AddConfigPath("configs")
	}
	// REDDITFROST_OPENAI_API_KEY, REDDITFROST_REDDIT_ACCESS_TOKEN, ...
	v.SetEnvPrefix("REDDITFROST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// secrets usually have no config file entry, so AutomaticEnv alone would not see them
	for _, k := range []string{"openai.api_key", "reddit.access_token", "redis.password"} {
		_ = v.BindEnv(k)
	}
	config.SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&appCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		appCfg.App.LogLevel = logLevel
	}

	appCfg.FillDefaults()

	if appCfg.PersonasFile != "" {
		extra, err := config.LoadPersonas(appCfg.PersonasFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading personas: %v\n", err)
			os.Exit(1)
		}
		appCfg.MergePersonas(extra)
	}
	if err := appCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}

	var logger *slog.Logger
	logger, logClose = config.SetupLogger(appCfg.App.LogLevel, appCfg.App.LogFile)
	slog.SetDefault(logger)
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}
