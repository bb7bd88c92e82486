package cli

import (
	"fmt"

	"github.com/SoundDrift/sounddrift-go/internal/version"
	"github.com/SoundDrift/sounddrift-go/pkg/audio/output"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func newBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the audio output backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range output.Backends() {
				if name == output.DefaultBackend {
					name += " (default)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
