package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version information of lmspace in JSON format.`,
	Run: func(_ *cobra.Command, _ []string) {
		json, err := version.Get().JSON()
		exitOnError(err)
		fmt.Println(json)
	},
}
