/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf-gate/spfgate/internal/memory"
)

// runServe starts the MCP stdio server and the Agent Memory sweep
// scheduler, and blocks until the transport closes. The memory sweep
// runs on the cron scheduler's own goroutine and is not coordinated with
// tools/call handling.
func runServe(args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	sweeper, err := memory.StartSweeper(a.memoryStore)
	if err != nil {
		return fmt.Errorf("start memory sweeper: %w", err)
	}
	defer sweeper.Stop()

	server := a.mcpServer()
	return server.Run(context.Background())
}
