/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package mcpserver

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spf-gate/spfgate/internal/complexity"
	"github.com/spf-gate/spfgate/internal/gate"
	"github.com/spf-gate/spfgate/internal/validator"
)

// writeInput is the Write tool's call shape.
type writeInput struct {
	Path    string `json:"path" jsonschema:"absolute destination path"`
	Content string `json:"content" jsonschema:"full file content to write"`
}

// editInput is the Edit tool's call shape.
type editInput struct {
	Path       string `json:"path" jsonschema:"absolute path of the file to edit"`
	OldString  string `json:"old_string" jsonschema:"exact text to replace"`
	NewString  string `json:"new_string" jsonschema:"replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"replace every occurrence instead of the first"`
}

// multiEditInput is the MultiEdit tool's call shape: one path, several
// sequential old/new pairs.
type multiEditInput struct {
	Path  string `json:"path" jsonschema:"absolute path of the file to edit"`
	Edits []struct {
		OldString string `json:"old_string" jsonschema:"exact text to replace"`
		NewString string `json:"new_string" jsonschema:"replacement text"`
	} `json:"edits" jsonschema:"ordered list of replacements to apply"`
}

// readInput is the Read tool's call shape.
type readInput struct {
	Path string `json:"path" jsonschema:"absolute path of the file to read"`
}

// bashInput is the Bash tool's call shape.
type bashInput struct {
	Command string `json:"command" jsonschema:"shell command to run"`
}

// genericInput covers every passthrough tool: the fields that are
// meaningful vary by tool, so the complexity estimator's files factor
// just reads whichever of path/pattern/command the caller populated.
type genericInput struct {
	Path    string `json:"path,omitempty" jsonschema:"path or URL argument, when applicable"`
	Pattern string `json:"pattern,omitempty" jsonschema:"glob or search pattern, when applicable"`
	Command string `json:"command,omitempty" jsonschema:"free-form argument, when applicable"`
}

// passthroughCategory assigns each known-safe tool name to the
// complexity category its behavior most resembles, for the formula's
// per-category base weights.
var passthroughCategory = map[string]complexity.Category{
	"Glob": complexity.CategorySearch, "Grep": complexity.CategorySearch, "LS": complexity.CategorySearch,
	"SearchCode": complexity.CategorySearch, "SearchSymbol": complexity.CategorySearch,
	"ListDir": complexity.CategorySearch, "StatFile": complexity.CategorySearch, "ReadLines": complexity.CategorySearch,
	"WebSearch": complexity.CategorySearch,

	"NotebookRead": complexity.CategoryRead, "ReadURL": complexity.CategoryRead,
	"FetchJSON": complexity.CategoryRead, "QueryAPI": complexity.CategoryRead,
	"GitStatus": complexity.CategoryRead, "GitDiff": complexity.CategoryRead,
	"GitLog": complexity.CategoryRead, "GitBlame": complexity.CategoryRead,
	"BashOutput": complexity.CategoryRead,

	"BrainRecall": complexity.CategoryBrain, "BrainStore": complexity.CategoryBrain,

	"RAGQuery": complexity.CategoryRAG, "RAGIngest": complexity.CategoryRAG,

	"MetaPing": complexity.CategoryMeta, "MetaVersion": complexity.CategoryMeta,
	"Task": complexity.CategoryMeta, "TodoRead": complexity.CategoryMeta, "TodoWrite": complexity.CategoryMeta,
	"KillShell": complexity.CategoryMeta, "Download": complexity.CategoryMeta, "Upload": complexity.CategoryMeta,
	"NotebookEdit": complexity.CategoryMeta, "FormatFile": complexity.CategoryMeta, "LintFile": complexity.CategoryMeta,
	"RunTests": complexity.CategoryMeta, "RunBuild": complexity.CategoryMeta, "WebFetch": complexity.CategoryMeta,
}

// passthroughDescription gives tools/list a one-line description per
// tool, grouped the same way passthroughCategory groups them.
var passthroughDescription = map[string]string{
	"Glob": "Find files matching a glob pattern", "Grep": "Search file contents by pattern",
	"LS": "List a directory's entries", "SearchCode": "Search source code by symbol or text",
	"SearchSymbol": "Search for a code symbol's definition", "ListDir": "List a directory's entries",
	"StatFile": "Get file metadata without reading content", "ReadLines": "Read a line range from a file",
	"WebSearch": "Run a web search query",

	"NotebookRead": "Read a notebook cell's content", "ReadURL": "Fetch and return a URL's content",
	"FetchJSON": "Fetch and parse a JSON endpoint", "QueryAPI": "Query a configured external API",
	"GitStatus": "Show working tree status", "GitDiff": "Show a diff against HEAD or a ref",
	"GitLog": "Show commit history", "GitBlame": "Show per-line commit attribution",
	"BashOutput": "Read output from a backgrounded shell",

	"BrainRecall": "Recall a stored agent memory entry", "BrainStore": "Store a new agent memory entry",

	"RAGQuery": "Query the retrieval index", "RAGIngest": "Ingest content into the retrieval index",

	"MetaPing": "Health-check the gateway", "MetaVersion": "Report the gateway's version",
	"Task": "Delegate a sub-task to a background agent", "TodoRead": "Read the current task list",
	"TodoWrite": "Update the current task list", "KillShell": "Terminate a backgrounded shell",
	"Download": "Download a remote file", "Upload": "Upload a file to a remote destination",
	"NotebookEdit": "Edit a notebook cell", "FormatFile": "Run a formatter over a file",
	"LintFile": "Run a linter over a file", "RunTests": "Run the project's test suite",
	"RunBuild": "Run the project's build", "WebFetch": "Fetch a URL and summarize its content",
}

func (s *Server) registerGatedTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "Write",
		Description: "Write content to a file, creating it if absent",
	}, s.handleWrite)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "Edit",
		Description: "Replace an exact string in an existing file",
	}, s.handleEdit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "MultiEdit",
		Description: "Apply several sequential string replacements to one file",
	}, s.handleMultiEdit)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "Read",
		Description: "Read a file's content",
	}, s.handleRead)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "Bash",
		Description: "Run a shell command",
	}, s.handleBash)
}

func (s *Server) registerPassthroughTools() {
	for _, name := range validator.KnownSafeTools() {
		category := categoryOf(name)
		desc := passthroughDescription[name]
		if desc == "" {
			desc = name
		}
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        name,
			Description: desc,
		}, s.passthroughHandler(name, category))
	}
}

func (s *Server) handleWrite(ctx context.Context, _ *mcp.CallToolRequest, input writeInput) (*mcp.CallToolResult, any, error) {
	return s.dispatch(ctx, gate.Call{
		Tool:     "Write",
		Category: complexity.CategoryWrite,
		Path:     input.Path,
		Content:  input.Content,
		EditWrite: &complexity.EditWriteInput{
			ContentLength: len(input.Content),
			HasImports:    strings.Contains(input.Content, "import "),
			Path:          input.Path,
			Content:       input.Content,
		},
	})
}

func (s *Server) handleEdit(ctx context.Context, _ *mcp.CallToolRequest, input editInput) (*mcp.CallToolResult, any, error) {
	return s.dispatch(ctx, gate.Call{
		Tool:     "Edit",
		Category: complexity.CategoryEdit,
		Path:     input.Path,
		Content:  input.NewString,
		EditWrite: &complexity.EditWriteInput{
			ContentLength: len(input.NewString),
			ReplaceAll:    input.ReplaceAll,
			LargeDiff:     len(input.OldString)+len(input.NewString) > 2000,
			HasImports:    strings.Contains(input.NewString, "import "),
			Path:          input.Path,
			Content:       input.NewString,
		},
	})
}

func (s *Server) handleMultiEdit(ctx context.Context, _ *mcp.CallToolRequest, input multiEditInput) (*mcp.CallToolResult, any, error) {
	var combined strings.Builder
	for _, e := range input.Edits {
		combined.WriteString(e.NewString)
	}
	content := combined.String()
	return s.dispatch(ctx, gate.Call{
		Tool:     "MultiEdit",
		Category: complexity.CategoryEdit,
		Path:     input.Path,
		Content:  content,
		EditWrite: &complexity.EditWriteInput{
			ContentLength: len(content),
			ReplaceAll:    len(input.Edits) > 1,
			LargeDiff:     len(content) > 2000,
			HasImports:    strings.Contains(content, "import "),
			Path:          input.Path,
			Content:       content,
		},
	})
}

func (s *Server) handleRead(ctx context.Context, _ *mcp.CallToolRequest, input readInput) (*mcp.CallToolResult, any, error) {
	return s.dispatch(ctx, gate.Call{
		Tool:     "Read",
		Category: complexity.CategoryRead,
		Path:     input.Path,
		Generic:  &complexity.GenericInput{Path: input.Path},
	})
}

func (s *Server) handleBash(ctx context.Context, _ *mcp.CallToolRequest, input bashInput) (*mcp.CallToolResult, any, error) {
	return s.dispatch(ctx, gate.Call{
		Tool:     "Bash",
		Category: complexity.CategoryBash,
		Command:  input.Command,
		Bash: &complexity.BashInput{
			Command:    input.Command,
			PipeCount:  strings.Count(input.Command, "|"),
			ChainCount: strings.Count(input.Command, "&&") + strings.Count(input.Command, ";"),
		},
	})
}

// passthroughHandler builds one closure per known-safe tool name, so a
// single generic input type can serve all of them while each still
// reports its own tool name and category to the pipeline.
func (s *Server) passthroughHandler(tool string, category complexity.Category) func(context.Context, *mcp.CallToolRequest, genericInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input genericInput) (*mcp.CallToolResult, any, error) {
		return s.dispatch(ctx, gate.Call{
			Tool:     tool,
			Category: category,
			Path:     input.Path,
			Command:  input.Command,
			Generic: &complexity.GenericInput{
				Path:    input.Path,
				Pattern: input.Pattern,
				Command: input.Command,
			},
		})
	}
}
