// Package cmd contains the CLI setup and commands exposed to the user
package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "showdown",
	Short: "A Pokémon Showdown chat client with pluggable message handlers",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err.Error())
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "showdown.yaml", "config file")
}
