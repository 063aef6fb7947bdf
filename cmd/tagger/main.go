// Command tagger classifies product photos into a category hierarchy.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
