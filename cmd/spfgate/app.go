/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/spf-gate/spfgate/internal/accesslog"
	"github.com/spf-gate/spfgate/internal/bootstrap"
	"github.com/spf-gate/spfgate/internal/cmdlog"
	"github.com/spf-gate/spfgate/internal/complexity"
	"github.com/spf-gate/spfgate/internal/config"
	"github.com/spf-gate/spfgate/internal/gate"
	"github.com/spf-gate/spfgate/internal/kvstore"
	"github.com/spf-gate/spfgate/internal/mcpserver"
	"github.com/spf-gate/spfgate/internal/memory"
	"github.com/spf-gate/spfgate/internal/pathresolve"
	"github.com/spf-gate/spfgate/internal/project"
	"github.com/spf-gate/spfgate/internal/rootdiscovery"
	"github.com/spf-gate/spfgate/internal/session"
	"github.com/spf-gate/spfgate/internal/shared/ratelimit"
	"github.com/spf-gate/spfgate/internal/validator"
	"github.com/spf-gate/spfgate/internal/vfs"
)

// app wires every gateway component against one data root. Subcommands
// that only need a slice of this (e.g. config-export never touches the
// session ledger) still pay the cost of opening every KV environment;
// that matches the teacher's own `cmd/control-plane/main.go`, which
// wires its full dependency graph once in main() regardless of which
// HTTP route ends up using it.
type app struct {
	root string

	logger *zap.Logger
	cmdLog *cmdlog.Log

	configKV    *kvstore.Store
	sessionKV   *kvstore.Store
	projectsKV  *kvstore.Store
	tmpKV       *kvstore.Store
	agentKV     *kvstore.Store
	vfsKV       *kvstore.Store

	configStore *config.Store
	ledger      *session.Ledger
	projects    *project.Store
	accessLog   *accesslog.Log
	memoryStore *memory.Store
	vfsStore    *vfs.Store
	vfsRouter   *vfs.Router

	resolver  *pathresolve.Resolver
	validator *validator.Validator
	estimator *complexity.Estimator
	limiter   *ratelimit.Limiter
	pipeline  *gate.Pipeline
}

// openApp discovers the data root, opens every KV environment beneath
// it, and wires the Gate Pipeline and its collaborators.
func openApp() (*app, error) {
	root, err := rootdiscovery.Discover()
	if err != nil {
		return nil, fmt.Errorf("root discovery: %w", err)
	}
	if boot, err := bootstrap.Load(root); err == nil && boot.RootOverride != "" {
		root = boot.RootOverride
	}

	debug := os.Getenv("SPF_DEBUG") == "1"
	var zlog *zap.Logger
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	sessionDir := filepath.Join(root, "LIVE", "SESSION")
	if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	cmdLog, err := cmdlog.Open(filepath.Join(sessionDir, "cmd.log"))
	if err != nil {
		return nil, err
	}

	a := &app{root: root, logger: zlog, cmdLog: cmdLog}

	if a.configKV, err = a.openEnv(kvstore.EnvConfiguration, "CONFIG"); err != nil {
		return nil, err
	}
	if a.sessionKV, err = a.openEnv(kvstore.EnvSession, "SESSION"); err != nil {
		return nil, err
	}
	if a.projectsKV, err = a.openEnv(kvstore.EnvProjects, "PROJECTS"); err != nil {
		return nil, err
	}
	if a.tmpKV, err = a.openEnv(kvstore.EnvTMP, "TMP"); err != nil {
		return nil, err
	}
	if a.agentKV, err = a.openEnv(kvstore.EnvAgentState, "LMDB5"); err != nil {
		return nil, err
	}
	if a.vfsKV, err = a.openEnv(kvstore.EnvVirtualFS, "SPF_FS"); err != nil {
		return nil, err
	}

	if a.configStore, err = config.Open(a.configKV); err != nil {
		return nil, err
	}
	if a.ledger, err = session.Open(a.sessionKV, time.Now()); err != nil {
		return nil, err
	}
	a.projects = project.Open(a.projectsKV)
	a.accessLog = accesslog.Open(a.vfsKV)
	a.memoryStore = memory.Open(a.agentKV)

	vfsDir := filepath.Join(root, "LIVE", "SPF_FS")
	if a.vfsStore, err = vfs.Open(a.vfsKV, vfsDir); err != nil {
		return nil, err
	}
	a.vfsRouter = vfs.NewRouter(a.configKV, a.tmpKV, a.projectsKV, a.agentKV, a.vfsStore)

	projectsRoot := filepath.Join(root, "LIVE", "PROJECTS", "PROJECTS")
	tmpRoot := filepath.Join(root, "LIVE", "TMP", "TMP")
	snap, err := a.configStore.Snapshot()
	if err != nil {
		return nil, err
	}
	a.resolver = pathresolve.New(projectsRoot, tmpRoot, snap.AllowedPaths, snap.BlockedPaths)
	a.validator = validator.New(a.resolver)
	a.estimator = complexity.New(snap.WeightTable, snap.TierTable, snap.FormulaParams)
	a.limiter = ratelimit.New(ratelimit.DefaultLimits())
	a.pipeline = gate.New(a.limiter, a.estimator, a.validator)

	return a, nil
}

func (a *app) openEnv(env kvstore.Env, dirName string) (*kvstore.Store, error) {
	dir := filepath.Join(a.root, "LIVE", dirName, dirName+".DB")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", dirName, err)
	}
	return kvstore.Open(env, filepath.Join(dir, "spf.db"), nil)
}

func (a *app) mcpServer() *mcpserver.Server {
	return mcpserver.New(a.pipeline, a.configStore, a.ledger, zapr.NewLogger(a.logger))
}

func (a *app) close() {
	a.cmdLog.Close()
	for _, kv := range []*kvstore.Store{a.configKV, a.sessionKV, a.projectsKV, a.tmpKV, a.agentKV, a.vfsKV} {
		if kv != nil {
			_ = kv.Close()
		}
	}
	_ = a.logger.Sync()
}
