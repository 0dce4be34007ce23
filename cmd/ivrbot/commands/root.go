package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koscakluka/ema-ivr/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ivrbot",
	Short: "IVR call flow for emergency support lines",
	Long: `ivrbot answers calls, offers a main menu, records a message for the
support option and forwards its transcript to an operator.

Configuration is read from the YAML file given with --config, then from the
environment (IVR_TRANSCRIPTION_URI, IVR_TRANSCRIPTION_KEY, DEEPGRAM_API_KEY,
IVR_NOTIFY_SERVICE_URL, IVR_NOTIFY_TOKEN, ...).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
