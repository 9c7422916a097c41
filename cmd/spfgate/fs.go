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
	"time"
)

// runFSImport reads a local file and writes it into the virtual
// filesystem at vpath, unless --dry-run is given.
func runFSImport(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: spfgate fs-import <vpath> <file> [--dry-run]")
	}
	vpath, file := args[0], args[1]
	dryRun := containsFlag(args, "--dry-run")

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	if dryRun {
		return printJSON(map[string]any{"vpath": vpath, "bytes": len(data), "dry_run": true})
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.vfsStore.Write(vpath, data, time.Now()); err != nil {
		return err
	}
	return printJSON(map[string]any{"vpath": vpath, "bytes": len(data)})
}

// runFSExport reads a virtual filesystem path and writes its content
// to a local file.
func runFSExport(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: spfgate fs-export <vpath> <file>")
	}
	vpath, file := args[0], args[1]

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := a.vfsStore.Read(vpath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", file, err)
	}
	return printJSON(map[string]any{"vpath": vpath, "bytes": len(data), "file": file})
}
