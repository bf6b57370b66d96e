package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/journey"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of journey",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("journey version %s\n", strings.TrimSpace(journey.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
