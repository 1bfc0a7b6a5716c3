// Command enrichrag answers questions from a document knowledge base and
// enriches it from trusted external sources when its own answers fall short.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
