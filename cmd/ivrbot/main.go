// Command ivrbot runs the IVR call flow.
//
// Usage:
//
//	ivrbot serve [-c config.yaml]   serve call events over HTTP
//	ivrbot simulate                 replay a call against stub backends
//	ivrbot schema                   print the workflow JSON schema
//	ivrbot version                  print the version
package main

import (
	"fmt"
	"os"

	"github.com/koscakluka/ema-ivr/cmd/ivrbot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
