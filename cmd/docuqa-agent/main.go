// Command docuqa-agent runs the document-grounded QA agent runtime: a
// bounded, tool-calling executor (internal/executor) backed by a document
// store and an LLM oracle, exposed over HTTP (internal/httpapi) or invoked
// directly for a single question.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
