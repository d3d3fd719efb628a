// Package tools discovers and provisions auxiliary engine plugins before a
// session starts. Provisioning is strictly best effort: a tool that fails
// to install reduces session capability but never blocks the session.
package tools

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// DefaultTools is the static fallback used when live discovery fails or
// times out.
var DefaultTools = []string{"filesystem", "fetch", "memory"}

// Discoverer produces the list of tool identifiers to provision.
type Discoverer interface {
	Discover(ctx context.Context) ([]string, error)
}

// StaticDiscoverer returns a fixed list. It backs the operator allow-list
// override and the fallback path.
type StaticDiscoverer struct {
	Tools []string
}

func (d *StaticDiscoverer) Discover(ctx context.Context) ([]string, error) {
	return d.Tools, nil
}

// EngineDiscoverer asks the interactive engine for its declared capability
// list by running it with the configured discover arguments and parsing one
// tool id per line.
type EngineDiscoverer struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func (d *EngineDiscoverer) Discover(ctx context.Context) ([]string, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, d.Command, d.Args...).Output()
	if err != nil {
		return nil, err
	}

	var tools []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		// first whitespace-separated field of each non-empty line
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		tools = append(tools, fields[0])
	}

	return tools, scanner.Err()
}
