package main

import (
	"os"

	"github.com/danmuck/savitr/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagHost    string
	flagPort    int
	flagTimeout int
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:           "savitrctl",
	Short:         "Talk to a Savitr heater WiFi module",
	Long:          "Read state, send commands and inspect raw 192-byte frames of a Savitr heater controller.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.ConfigureRuntime()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "savitrd config file supplying host, port and timeout")
	pf.StringVar(&flagHost, "host", "", "heater module host (overrides config)")
	pf.IntVar(&flagPort, "port", 0, "heater module port (overrides config)")
	pf.IntVar(&flagTimeout, "timeout", 0, "connect timeout in seconds (overrides config)")
	pf.BoolVar(&flagJSON, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(execCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("savitrctl failed")
		os.Exit(1)
	}
}
