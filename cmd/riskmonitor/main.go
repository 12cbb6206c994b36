// Command riskmonitor runs the options risk monitoring pipeline from the command
// line or as a long-running API server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
