package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"
)

// serviceStopTimeout bounds how long Stop waits for an in-flight run.
const serviceStopTimeout = 30 * time.Second

// ServiceCmd installs and controls watch mode as a system service
// (systemd, launchd or the Windows service manager).
type ServiceCmd struct {
	Action   string        `arg:"" enum:"install,uninstall,start,stop,restart,status,run" help:"One of: install, uninstall, start, stop, restart, status, run"`
	Name     string        `help:"Service name" default:"imgresponsiver"`
	Debounce time.Duration `help:"Quiet period after the last change before a run" default:"500ms"`
}

// program adapts watch mode to service.Interface.
type program struct {
	a        *app
	debounce time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// Start is called by the service manager; it must not block.
func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(p.a.manager.Context())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		if err := watch(ctx, p.a, p.debounce); err != nil {
			p.a.logger.Error("Watch stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop cancels the watch loop and waits for the current run to finish.
func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
		return nil
	case <-time.After(serviceStopTimeout):
		return fmt.Errorf("timeout waiting for service to stop")
	}
}

// Run executes the command.
func (c *ServiceCmd) Run(a *app) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	prg := &program{a: a, debounce: c.Debounce}
	s, err := service.New(prg, serviceConfig(c.Name, workDir, a.globals, c.Debounce))
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	switch c.Action {
	case "run":
		return s.Run()
	case "status":
		status, err := s.Status()
		if err != nil {
			return fmt.Errorf("failed to query service status: %w", err)
		}
		fmt.Fprintf(a.stdout, "%s: %s\n", c.Name, statusText(status))
		return nil
	default:
		if err := service.Control(s, c.Action); err != nil {
			return fmt.Errorf("service %s failed: %w", c.Action, err)
		}
		fmt.Fprintf(a.stdout, "Service %s: %s done\n", c.Name, c.Action)
		return nil
	}
}

// serviceConfig describes how the service manager launches this binary:
// in workDir, with the same configuration flags, running "service run".
func serviceConfig(name, workDir string, g *Globals, debounce time.Duration) *service.Config {
	var args []string
	if g.Config != "" {
		args = append(args, "--config", absPath(workDir, g.Config))
	}
	if g.EnvFile != "" {
		args = append(args, "--env-file", absPath(workDir, g.EnvFile))
	}
	args = append(args, "service", "run", "--name", name, "--debounce", debounce.String())

	return &service.Config{
		Name:             name,
		DisplayName:      "Responsive image watcher (" + name + ")",
		Description:      "Regenerates responsive image variants and <picture> markup when source images change",
		Arguments:        args,
		WorkingDirectory: workDir,
		Option: service.KeyValue{
			"StartType": "automatic",
			"Restart":   "on-failure",
		},
	}
}

// absPath resolves p against dir unless it is already absolute.
func absPath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// statusText names a service status.
func statusText(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
