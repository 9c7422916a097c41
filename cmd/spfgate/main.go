/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Command spfgate is the gateway's single binary: `serve` runs the MCP
// stdio surface, and the remaining subcommands are operator/diagnostic
// entry points that share the same data root.
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = runServe(args)
	case "gate":
		err = runGate(args)
	case "calculate":
		err = runCalculate(args)
	case "status":
		err = runStatus(args)
	case "session":
		err = runSession(args)
	case "reset":
		err = runReset(args)
	case "init-config":
		err = runInitConfig(args)
	case "refresh-paths":
		err = runRefreshPaths(args)
	case "fs-import":
		err = runFSImport(args)
	case "fs-export":
		err = runFSExport(args)
	case "config-import":
		err = runConfigImport(args)
	case "config-export":
		err = runConfigExport(args)
	case "version":
		fmt.Printf("spfgate %s (commit: %s)\n", version, commit)
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `spfgate - security gateway for AI-agent tool calls

Usage:
  spfgate serve                              run the MCP stdio server
  spfgate gate <tool> <json>                 run one call through the gate, print the decision
  spfgate calculate <tool> <json>            score one call's complexity without side effects
  spfgate status                             print session and metrics summary
  spfgate session                            print the current session ledger
  spfgate reset                              reset the session ledger
  spfgate init-config                        seed the configuration store with defaults
  spfgate refresh-paths [--dry-run]          recompute path rules from current configuration
  spfgate fs-import <vpath> <file> [--dry-run]   import a file into the virtual filesystem
  spfgate fs-export <vpath> <file>           export a virtual filesystem path to a file
  spfgate config-import <json> [--dry-run]   import a configuration snapshot
  spfgate config-export [--encrypt <keyfile>]    export the configuration snapshot
  spfgate version                            print the build version
`)
}
