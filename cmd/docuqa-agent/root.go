package main

import "github.com/spf13/cobra"

var version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "docuqa-agent",
	Short:   "Document-grounded QA agent runtime",
	Version: version,
	Long: `docuqa-agent runs a bounded, tool-calling QA agent over a document
store: it plans a short approach, issues search_docs/open_citation tool
calls within a fixed budget, validates its own answer for grounding before
accepting it, and falls back to a context-bound synthesis when the loop
ends without accepting a final answer.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./docuqa-agent.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the docuqa-agent version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version)
	},
}
