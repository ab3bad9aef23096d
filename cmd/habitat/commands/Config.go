package commands

import (
	"github.com/spf13/cobra"

	"github.com/JelinR/habitat-lab/config"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config [key=value ...]",
		Short: "Print the merged config as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(flags.configPath, args)
			if err != nil {
				return err
			}

			out, err := c.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
