package platform

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandEnforcer hides an app by running a configured command. Every
// "{package}" in the argument template is replaced with the package id.
type CommandEnforcer struct {
	argv    []string
	timeout time.Duration
}

func NewCommandEnforcer(argv []string, timeout time.Duration) *CommandEnforcer {
	return &CommandEnforcer{argv: argv, timeout: timeout}
}

// Hide runs the command. With no command configured it does nothing.
func (c *CommandEnforcer) Hide(ctx context.Context, pkg string) error {
	if len(c.argv) == 0 {
		return nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = strings.ReplaceAll(a, "{package}", pkg)
	}
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("hide %s: %w: %s", pkg, err, strings.TrimSpace(string(out)))
	}
	return nil
}
