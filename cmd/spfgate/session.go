/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import "time"

// runSession prints the full current session ledger as JSON.
func runSession(_ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	return printJSON(a.ledger.Current())
}

// runReset replaces the session ledger with a fresh one and persists
// it, for the `reset` CLI subcommand.
func runReset(_ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ledger.ResetAndSave(time.Now()); err != nil {
		return err
	}
	return printJSON(a.ledger.Current())
}
