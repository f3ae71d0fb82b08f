// Package sysutil runs the partitioning and formatting tools and waits for
// the device nodes they create.
package sysutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	"piso/pisoos/errs"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 5 * time.Minute

// Runner executes a tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	Timeout time.Duration
	// Logf, when set, receives one line per invocation.
	Logf func(format string, args ...any)
}

// Run executes name with args. A non-zero exit is an ExternalToolError
// carrying the tool's stderr.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if r.Logf != nil {
		r.Logf("exec: %s %s", name, strings.Join(args, " "))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(execCtx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if execCtx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %v", timeout)
	}
	if err != nil {
		return stdout.String(), &errs.ExternalToolError{
			Tool:   name,
			Args:   args,
			Output: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Template is a tool invocation with {placeholder} arguments, written the way
// it would be typed in a shell.
type Template struct {
	Name string
	Args []string
}

// ParseTemplate splits s with shell quoting rules.
func ParseTemplate(s string) (Template, error) {
	parts, err := shlex.Split(s)
	if err != nil {
		return Template{}, fmt.Errorf("parse tool template %q: %w", s, err)
	}
	if len(parts) == 0 {
		return Template{}, errors.New("empty tool template")
	}
	return Template{Name: parts[0], Args: parts[1:]}, nil
}

// MustParseTemplate is ParseTemplate for package-level templates.
func MustParseTemplate(s string) Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Expand substitutes {key} placeholders in every argument.
func (t Template) Expand(vars map[string]string) []string {
	out := make([]string, len(t.Args))
	for i, a := range t.Args {
		for k, v := range vars {
			a = strings.ReplaceAll(a, "{"+k+"}", v)
		}
		out[i] = a
	}
	return out
}

// Run expands the template and runs it with r.
func (t Template) Run(ctx context.Context, r Runner, vars map[string]string) (string, error) {
	return r.Run(ctx, t.Name, t.Expand(vars)...)
}

func (t Template) String() string {
	return strings.TrimSpace(t.Name + " " + strings.Join(t.Args, " "))
}
