package tools

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/mkrutov/termgate/internal/logging"
	"github.com/mkrutov/termgate/internal/server/config"
)

// ProgressSink receives one human-readable line per provisioning step.
type ProgressSink func(line string)

// Provisioner installs auxiliary engine tools ahead of a session.
type Provisioner struct {
	command     string
	installArgs []string
	timeout     time.Duration
	discoverer  Discoverer
	logger      logging.Logger
}

// NewProvisioner selects the discovery strategy from config: an explicit
// allow-list bypasses discovery entirely, otherwise the engine is queried
// live with DefaultTools as the fallback.
func NewProvisioner(cfg *config.Config, logger logging.Logger) *Provisioner {
	var d Discoverer
	if len(cfg.ToolAllowList) > 0 {
		d = &StaticDiscoverer{Tools: cfg.ToolAllowList}
	} else {
		d = &EngineDiscoverer{
			Command: cfg.EngineCommand,
			Args:    cfg.EngineDiscoverArgs,
			Timeout: cfg.ToolTimeout,
		}
	}

	return &Provisioner{
		command:     cfg.EngineCommand,
		installArgs: cfg.EngineInstallArgs,
		timeout:     cfg.ToolTimeout,
		discoverer:  d,
		logger:      logger.With("module", "tools"),
	}
}

// Discover returns the tool list to provision, falling back to
// DefaultTools when live discovery fails.
func (p *Provisioner) Discover(ctx context.Context) []string {
	tools, err := p.discoverer.Discover(ctx)
	if err != nil {
		p.logger.Warn(ctx, "tool discovery failed, using fallback list", "error", err)
		return DefaultTools
	}
	return tools
}

// Provision attempts installation of each tool with a bounded per-tool
// timeout, emitting a progress line per attempt. A single tool's failure
// never aborts the remaining tools.
func (p *Provisioner) Provision(ctx context.Context, toolList []string, sink ProgressSink) {
	if sink == nil {
		sink = func(string) {}
	}

	for _, tool := range toolList {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sink(fmt.Sprintf("installing %s...", tool))

		if err := p.install(ctx, tool); err != nil {
			p.logger.Warn(ctx, "tool install failed", "tool", tool, "error", err)
			sink(fmt.Sprintf("installing %s... failed (%v)", tool, err))
			continue
		}

		sink(fmt.Sprintf("installing %s... done", tool))
	}
}

func (p *Provisioner) install(ctx context.Context, tool string) error {
	timeout := p.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, p.installArgs...), tool)
	return exec.CommandContext(ctx, p.command, args...).Run()
}
