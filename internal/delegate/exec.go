package delegate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hyperjump/ragbench/internal/options"
	"github.com/hyperjump/ragbench/pkg/utils"
	"go.uber.org/zap"
)

// ExitError is returned when the child pipeline exits non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("pipeline exited with status %d", e.Code)
	}
	return fmt.Sprintf("pipeline exited with status %d: %s", e.Code, utils.Truncate(msg, 500))
}

// Exec runs the pipeline binary as a child process with the resolved parameters as
// flags and relays its standard output. It waits for the child without a timeout
// unless ctx carries one.
type Exec struct {
	command string
	args    []string
	logger  *zap.Logger
}

// ExecOption configures an Exec.
type ExecOption func(*Exec)

// WithArgs sets arguments placed before the parameter flags, e.g. a --config flag.
func WithArgs(args ...string) ExecOption {
	return func(e *Exec) { e.args = append(e.args, args...) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExecOption {
	return func(e *Exec) { e.logger = l }
}

// NewExec returns a Delegate that runs command.
func NewExec(command string, opts ...ExecOption) *Exec {
	e := &Exec{command: command}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Invoke implements Delegate. Standard error is kept separate and only surfaces through
// ExitError or the debug log.
func (e *Exec) Invoke(ctx context.Context, p options.Params) (string, error) {
	args := append(append([]string{}, e.args...),
		"--llm_id", p.ModelID,
		"--prompt_template", p.PromptTemplate,
		"--query", p.Query,
	)
	cmd := exec.CommandContext(ctx, e.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("running pipeline", zap.String("command", e.command), zap.String("model", p.ModelID))
	err := cmd.Run()
	if stderr.Len() > 0 {
		e.logger.Debug("pipeline stderr", zap.String("stderr", stderr.String()))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &ExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return "", fmt.Errorf("run %s: %w", e.command, err)
	}
	return stdout.String(), nil
}
