package cmd

import (
	"soundwave/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Soundwave server",
	Long:  `Start the Soundwave HTTP server, serving the song catalog API and playback sessions`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
