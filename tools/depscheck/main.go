package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "lifeworld/server"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// rule forbids packages under from importing anything under to.
type rule struct {
	from string
	to   string
}

// The simulation core never reaches outward to transport, wiring or
// concrete storage backends.
var rules = []rule{
	{from: modulePath + "/internal/grid", to: modulePath + "/internal/sim"},
	{from: modulePath + "/internal/grid", to: modulePath + "/internal/store"},
	{from: modulePath + "/internal/sim", to: modulePath + "/internal/net"},
	{from: modulePath + "/internal/sim", to: modulePath + "/internal/app"},
	{from: modulePath + "/internal/sim", to: modulePath + "/internal/store/redisstore"},
	{from: modulePath + "/internal/store", to: modulePath + "/internal/sim"},
	{from: modulePath + "/internal/net", to: modulePath + "/internal/store/redisstore"},
	{from: modulePath + "/internal/net", to: modulePath + "/internal/app"},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	packages, err := decodePackages(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
		os.Exit(1)
	}

	violations := findViolations(packages, rules)
	if len(violations) > 0 {
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func decodePackages(output []byte) ([]packageInfo, error) {
	decoder := json.NewDecoder(bytes.NewReader(output))
	var packages []packageInfo
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				return packages, nil
			}
			return nil, err
		}
		packages = append(packages, pkg)
	}
}

func findViolations(packages []packageInfo, rules []rule) []string {
	var violations []string
	for _, pkg := range packages {
		for _, r := range rules {
			if !within(pkg.ImportPath, r.from) {
				continue
			}
			for _, imp := range pkg.Imports {
				if within(imp, r.to) {
					violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
				}
			}
		}
	}
	sort.Strings(violations)
	return violations
}

func within(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
