/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package mcpserver exposes the Gate Pipeline over stdio as an MCP tool
// surface: every cataloged tool is registered with mcp.AddTool, and
// tools/call routes into the pipeline before any handler body runs an
// effect. The ten virtual-FS tool names are never registered here, so
// tools/list never advertises them, even though the validator would
// hard-deny them anyway if a client guessed the name.
package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spf-gate/spfgate/internal/complexity"
	"github.com/spf-gate/spfgate/internal/config"
	"github.com/spf-gate/spfgate/internal/gate"
	"github.com/spf-gate/spfgate/internal/session"
)

// Version is injected from the gateway's build metadata.
var Version = "dev"

// Server wires the Gate Pipeline to an MCP tool surface.
type Server struct {
	server   *mcp.Server
	pipeline *gate.Pipeline
	cfg      *config.Store
	ledger   *session.Ledger
	log      logr.Logger
	clock    func() time.Time
}

// New builds the MCP server and registers every cataloged tool.
func New(pipeline *gate.Pipeline, cfg *config.Store, ledger *session.Ledger, log logr.Logger) *Server {
	impl := Version
	if impl == "" {
		impl = "dev"
	}

	s := &Server{
		server:   mcp.NewServer(&mcp.Implementation{Name: "spfgate", Version: impl}, nil),
		pipeline: pipeline,
		cfg:      cfg,
		ledger:   ledger,
		log:      log.WithName("mcpserver"),
		clock:    time.Now,
	}

	s.registerGatedTools()
	s.registerPassthroughTools()

	return s
}

// Run blocks serving tools/call, tools/list, initialize, and ping over
// stdin/stdout line-delimited JSON-RPC, per the gateway's single
// inbound channel.
func (s *Server) Run(ctx context.Context) error {
	transport := mcp.NewStdioTransport()
	if err := s.server.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcpserver: run: %w", err)
	}
	return nil
}

// dispatch runs call through the Gate Pipeline against the current
// Configuration snapshot and returns its Decision as the tool result,
// win or lose — a BLOCKED verdict is a normal tool response, not a
// transport-level error.
func (s *Server) dispatch(ctx context.Context, call gate.Call) (*mcp.CallToolResult, any, error) {
	snap, err := s.cfg.Snapshot()
	if err != nil {
		return nil, nil, fmt.Errorf("mcpserver: snapshot: %w", err)
	}

	decision, err := s.pipeline.Process(ctx, call, snap, s.ledger, s.clock())
	if err != nil {
		return nil, nil, fmt.Errorf("mcpserver: process %s: %w", call.Tool, err)
	}

	if !decision.Allowed {
		s.log.Info("tool call blocked", "tool", call.Tool, "c", decision.C, "tier", decision.Tier)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: decision.Message}},
	}, decision, nil
}

// categoryOf resolves the complexity category a passthrough tool name
// was cataloged under.
func categoryOf(tool string) complexity.Category {
	if cat, ok := passthroughCategory[tool]; ok {
		return cat
	}
	return complexity.CategoryUnknown
}
