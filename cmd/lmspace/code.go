package main

import (
	"github.com/spf13/cobra"
)

var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Work with editor subagents",
	Long:  `Transpile agent definitions and manage the pool of editor subagent workspaces.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	codeCmd.AddCommand(transpileCmd)
	codeCmd.AddCommand(skillsCmd)
	codeCmd.AddCommand(provisionCmd)
	codeCmd.AddCommand(unlockCmd)
	codeCmd.AddCommand(warmupCmd)
	codeCmd.AddCommand(statusCmd)
	codeCmd.AddCommand(chatCmd)
	codeCmd.AddCommand(agentsCmd)
}
