package cmd

import (
	"fmt"
	"log"
	"os"

	"LumiFM/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "lumifm",
	Short: "LumiFM is a shared listening station for a fan site.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting LumiFM server...")
		// server.Start handles its own configuration and startup logging.
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
