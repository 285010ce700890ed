package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ConfirmFunc asks the user to approve a dangerous command
type ConfirmFunc func(command string) bool

type commandRunner struct {
	confirm ConfirmFunc
	timeout time.Duration
}

// NewRunCommandTool returns the shell command descriptor.
// confirm may be nil, in which case dangerous commands run unconfirmed.
func NewRunCommandTool(confirm ConfirmFunc, timeout time.Duration) Descriptor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &commandRunner{confirm: confirm, timeout: timeout}

	return Descriptor{
		Name:           "run_command",
		Category:       CategorySystem,
		Description:    "Execute a command in the shell. Dangerous commands require confirmation.",
		Keywords:       []string{"run command", "shell command"},
		RequiredParams: []string{"command"},
		Handler:        c.run,
	}
}

func (c *commandRunner) run(ctx context.Context, params map[string]any) (any, error) {
	command, err := stringParam(params, "command")
	if err != nil {
		return nil, err
	}

	timeout := c.timeout
	if to, ok := toFloat(params["timeout"]); ok && to > 0 {
		timeout = time.Duration(to * float64(time.Second))
	}

	if isDangerousCommand(command) && c.confirm != nil && !c.confirm(command) {
		return nil, fmt.Errorf("user cancelled dangerous operation")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	// Children of sh may hold the pipes open after sh is killed
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("command execution timeout (%v)", timeout)
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run command: %w", runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	// A non-zero exit status is reported in the output, not as a failure
	return map[string]any{
		"command":   command,
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}, nil
}

// isDangerousCommand checks if a command is dangerous
func isDangerousCommand(command string) bool {
	dangerousPatterns := []string{
		"rm -rf",
		"rm -r",
		"rmdir",
		"dd if=",
		"> /dev/",
		"mkfs",
		"fdisk",
		"format",
		"shutdown",
		"reboot",
		"init 0",
		"init 6",
		":(){:|:&};:", // fork bomb
		"chmod -r 777",
		"chown -r",
		"wget", "curl",
	}

	lowerCmd := strings.ToLower(command)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerCmd, pattern) {
			return true
		}
	}

	return false
}
