package main

import (
	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
)

// cli holds state shared by the subcommands.
type cli struct {
	configFile string
	settings   *config.Settings
}

func rootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "mudra",
		Short:         "Hand gesture recognition from landmark frames",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "config file (default: ./mudra.yaml or ~/.mudra/mudra.yaml)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(c.configFile)
		if err != nil {
			return err
		}
		if _, err := logging.Setup(settings.Logging); err != nil {
			return err
		}
		c.settings = settings
		return nil
	}

	root.AddCommand(
		serveCommand(c),
		runCommand(c),
		configCommand(c),
	)
	return root
}
