// Command counter drives a counter sub-state through the store and a saga
// and reports what happened.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
