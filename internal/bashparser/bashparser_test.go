/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package bashparser

import "testing"

func TestParse_SplitsTopLevelConstructs(t *testing.T) {
	res := Parse(`echo hi; cp a.txt /tmp/b.txt && rm -rf /tmp/c`, nil, nil, nil)

	var paths []string
	for _, d := range res.Destinations {
		paths = append(paths, d.Path)
	}
	if !contains(paths, "/tmp/b.txt") {
		t.Fatalf("expected cp destination /tmp/b.txt in %v", paths)
	}
	if !contains(paths, "/tmp/c") {
		t.Fatalf("expected rm destination /tmp/c in %v", paths)
	}
}

func TestParse_QuotedSeparatorNotSplit(t *testing.T) {
	res := Parse(`echo "a; b && c"`, nil, nil, nil)
	if len(res.Destinations) != 0 {
		t.Fatalf("expected no destinations, got %v", res.Destinations)
	}
}

func TestParse_RedirectExtractsDestination(t *testing.T) {
	res := Parse(`echo payload >> /srv/app/config.yaml`, nil, nil, nil)
	if len(res.Destinations) != 1 || res.Destinations[0].Path != "/srv/app/config.yaml" {
		t.Fatalf("expected redirect destination, got %v", res.Destinations)
	}
}

func TestParse_DdOfExtractsDestination(t *testing.T) {
	res := Parse(`dd if=/dev/zero of=/srv/disk.img bs=1M count=10`, nil, nil, nil)
	if len(res.Destinations) != 1 || res.Destinations[0].Path != "/srv/disk.img" {
		t.Fatalf("expected dd destination, got %v", res.Destinations)
	}
}

func TestParse_SedInPlaceExtractsDestination(t *testing.T) {
	res := Parse(`sed -i 's/a/b/' /srv/app/file.conf`, nil, nil, nil)
	if len(res.Destinations) != 1 || res.Destinations[0].Path != "/srv/app/file.conf" {
		t.Fatalf("expected sed -i destination, got %v", res.Destinations)
	}
}

func TestParse_SedWithoutInPlaceExtractsNothing(t *testing.T) {
	res := Parse(`sed 's/a/b/' /srv/app/file.conf`, nil, nil, nil)
	if len(res.Destinations) != 0 {
		t.Fatalf("expected no destinations without -i, got %v", res.Destinations)
	}
}

func TestParse_SedInPlaceExtractsEveryDestination(t *testing.T) {
	res := Parse(`sed -i 's/a/b/' /srv/app/f1.txt /srv/app/f2.txt /srv/app/f3.txt`, nil, nil, nil)
	want := []string{"/srv/app/f1.txt", "/srv/app/f2.txt", "/srv/app/f3.txt"}
	if len(res.Destinations) != len(want) {
		t.Fatalf("expected %d destinations, got %v", len(want), res.Destinations)
	}
	for i, d := range res.Destinations {
		if d.Path != want[i] {
			t.Fatalf("destination %d: got %q, want %q", i, d.Path, want[i])
		}
	}
}

func TestParse_DangerousPatternMatched(t *testing.T) {
	res := Parse(`rm -rf /`, map[string]int{"rm -rf /": 10}, nil, nil)
	if len(res.Dangerous) != 1 || res.Dangerous[0].Severity != 10 {
		t.Fatalf("expected dangerous match, got %v", res.Dangerous)
	}
}

func TestParse_HardcodedSupplementAlwaysApplies(t *testing.T) {
	res := Parse(`chmod 0777 /srv/app`, nil, []string{"chmod 0777"}, nil)
	if len(res.Dangerous) != 1 {
		t.Fatalf("expected hardcoded dangerous match, got %v", res.Dangerous)
	}
}

func TestParse_GitForceDetected(t *testing.T) {
	res := Parse(`git push --force origin main`, nil, nil, []string{"--force"})
	if !res.GitForce {
		t.Fatal("expected git force detection")
	}
}

func TestParse_GitWithoutForceFlagNotDetected(t *testing.T) {
	res := Parse(`git push origin main`, nil, nil, []string{"--force"})
	if res.GitForce {
		t.Fatal("expected no git force detection")
	}
}

func TestParse_TmpReferenceDetected(t *testing.T) {
	res := Parse(`cat /tmp/secret`, nil, nil, nil)
	if !res.ReferencesTmp {
		t.Fatal("expected /tmp reference to be detected")
	}
}

func TestParse_InlineCodeFlagDetected(t *testing.T) {
	res := Parse(`python3 -c "import os; os.remove('/etc/passwd')"`, nil, nil, nil)
	if !res.InlineCodeFlags {
		t.Fatal("expected inline code flag detection")
	}
}

func contains(items []string, target string) bool {
	for _, it := range items {
		if it == target {
			return true
		}
	}
	return false
}
