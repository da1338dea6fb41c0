package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "interview-api"

var rootCmd = &cobra.Command{
	Use:   app,
	Short: "Interview evaluation and session access API",
	// Runtime errors are not usage errors.
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("LOG_DEBUG", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("LOG_JSON", rootCmd.PersistentFlags().Lookup("json"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
