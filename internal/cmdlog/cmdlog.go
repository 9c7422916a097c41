/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package cmdlog implements the gateway's durable operator-visibility
// log: one line per Gate decision, appended to <root>/LIVE/SESSION/cmd.log
// independent of the structured zap/logr stream, rotated once it
// crosses 10MiB.
package cmdlog

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"
)

// MaxSize is the size cmd.log rotates at.
const MaxSize = 10 << 20 // 10MiB

// Log appends "[ts] CALL|FAIL tool | summary" lines to a rotating file.
type Log struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
	size int64
}

// Open opens (creating if absent) the log file at path.
func Open(path string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("cmdlog: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cmdlog: stat %s: %w", path, err)
	}
	return &Log{path: path, f: f, w: bufio.NewWriter(f), size: info.Size()}, nil
}

// Record appends one line for a Gate decision: status is "CALL" for an
// allowed decision, "FAIL" otherwise.
func (l *Log) Record(at time.Time, status, tool, summary string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s %s | %s\n", at.UTC().Format(time.RFC3339), status, tool, summary)
	n, err := l.w.WriteString(line)
	if err != nil {
		return fmt.Errorf("cmdlog: write: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("cmdlog: flush: %w", err)
	}
	l.size += int64(n)

	if l.size >= MaxSize {
		return l.rotateLocked()
	}
	return nil
}

// rotateLocked renames the current file to path.1 (clobbering any
// previous rotation) and opens a fresh one in its place. Caller must
// hold l.mu.
func (l *Log) rotateLocked() error {
	if err := l.f.Close(); err != nil {
		return fmt.Errorf("cmdlog: close before rotate: %w", err)
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return fmt.Errorf("cmdlog: rotate: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("cmdlog: reopen after rotate: %w", err)
	}
	l.f = f
	l.w = bufio.NewWriter(f)
	l.size = 0
	return nil
}

// Close flushes and closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return err
	}
	return l.f.Close()
}
