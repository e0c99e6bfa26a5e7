package main

import "testing"

func TestDecodePackagesReadsConcatenatedObjects(t *testing.T) {
	output := []byte(`{"ImportPath":"a","Imports":["b"]}
{"ImportPath":"c"}`)
	packages, err := decodePackages(output)
	if err != nil {
		t.Fatalf("decodePackages failed: %v", err)
	}
	if len(packages) != 2 || packages[0].Imports[0] != "b" || packages[1].ImportPath != "c" {
		t.Fatalf("unexpected packages %+v", packages)
	}
}

func TestFindViolations(t *testing.T) {
	packages := []packageInfo{
		{ImportPath: modulePath + "/internal/sim", Imports: []string{modulePath + "/internal/grid", modulePath + "/internal/net/proto"}},
		{ImportPath: modulePath + "/internal/net/ws", Imports: []string{modulePath + "/internal/sim"}},
		{ImportPath: modulePath + "/internal/store", Imports: []string{modulePath + "/internal/grid"}},
		{ImportPath: modulePath + "/internal/network", Imports: []string{modulePath + "/internal/app"}},
	}

	violations := findViolations(packages, rules)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %v", violations)
	}
	if violations[0] != modulePath+"/internal/sim -> "+modulePath+"/internal/net/proto" {
		t.Fatalf("unexpected violation %q", violations[0])
	}
}
