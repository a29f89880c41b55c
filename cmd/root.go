package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wizard-tactics",
	Short: "Authoritative simulation server for the Wizard Tactics board game",
	Long: `wizard-tactics runs the rules engine for a turn-based hex-map strategy
game: data-driven cards and abilities, formula-scripted effects, and a
deterministic turn economy. Matches can be played against the scripted
opponent, logged, and replayed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.wizard-tactics.yaml)")
	rootCmd.PersistentFlags().String("content_dir", "", "game content directory")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	_ = viper.BindPFlag("content_dir", rootCmd.PersistentFlags().Lookup("content_dir"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wizard-tactics")
	}

	viper.SetEnvPrefix("wizard_tactics")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("config", viper.ConfigFileUsed()).Msg("using config file")
	}
}

// contentDir resolves the content directory from flags, env and config,
// falling back to ./data.
func contentDir() string {
	if dir := viper.GetString("content_dir"); dir != "" {
		return dir
	}
	return "data"
}
