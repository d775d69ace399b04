package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/vk/sweepgrid/internal/ctxlog"
	"github.com/vk/sweepgrid/internal/node"
	"github.com/vk/sweepgrid/internal/statetable"
	"github.com/vk/sweepgrid/internal/tmpl"
	"mvdan.cc/sh/v3/shell"
)

// Template data keys set by Initialize.
const (
	DeckKey          = "deck"
	ParameterFileKey = "parameter_file"
)

// Outputs.
const (
	ExitCodeOutput = "exit_code"
	DurationOutput = "duration"
)

type scratch struct {
	Deck          string
	ParameterFile string
	Argv          []string
	Env           []string
}

// Node runs one external program per row.
type Node struct {
	node.Base
	node.State[scratch]

	settings Settings
	timeout  time.Duration
}

// Settings returns the resolved settings.
func (n *Node) Settings() Settings { return n.settings }

// Initialize renders the templates into the working directory and prepares
// the command line. Nothing is executed.
func (n *Node) Initialize(ctx context.Context, row statetable.Row) error {
	logger := ctxlog.FromContext(ctx).With("node", n.Name())
	data := n.TemplateData(row)

	if n.settings.ParameterTemplate != "" {
		out, err := tmpl.RenderFile(n.settings.ParameterTemplate, data, n.WorkDir(), n.settings.Suffix)
		if err != nil {
			return err
		}
		n.Cur.ParameterFile = out
		data[ParameterFileKey] = out
	}
	if n.settings.Template != "" {
		out, err := tmpl.RenderFile(n.settings.Template, data, n.WorkDir(), n.settings.Suffix)
		if err != nil {
			return err
		}
		n.Cur.Deck = out
		data[DeckKey] = out
	}

	line, err := tmpl.Render(n.settings.Command, data)
	if err != nil {
		return fmt.Errorf("command: %w", err)
	}

	env := os.Environ()
	if n.settings.EnvFile != "" {
		vars, err := godotenv.Read(n.settings.EnvFile)
		if err != nil {
			return fmt.Errorf("failed to read env file: %w", err)
		}
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+vars[k])
		}
	}
	lookup := envLookup(env)
	argv, err := shell.Fields(line, lookup)
	if err != nil {
		return fmt.Errorf("failed to split command %q: %w", line, err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("command %q is empty after rendering", n.settings.Command)
	}
	n.Cur.Argv = argv
	n.Cur.Env = env

	logger.Debug("Command prepared.", "argv", argv, "deck", n.Cur.Deck)
	return nil
}

// Run executes the prepared command. A non-zero exit status fails the node.
func (n *Node) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("node", n.Name())
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	start := time.Now()
	var code int
	err := n.Track(func() error {
		logFile, err := os.Create(filepath.Join(n.WorkDir(), n.settings.Log))
		if err != nil {
			return err
		}
		defer logFile.Close()

		cmd := exec.CommandContext(ctx, n.Cur.Argv[0], n.Cur.Argv[1:]...)
		cmd.Dir = n.WorkDir()
		cmd.Env = n.Cur.Env
		cmd.Stdout = logFile
		cmd.Stderr = logFile

		logger.Info("Running command.", "argv", n.Cur.Argv, "dir", cmd.Dir)
		runErr := cmd.Run()
		var exitErr *exec.ExitError
		switch {
		case runErr == nil:
		case errors.As(runErr, &exitErr):
			code = exitErr.ExitCode()
			return fmt.Errorf("%s exited with code %d (see %s)", n.Cur.Argv[0], code, logFile.Name())
		default:
			return runErr
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("command timed out after %s: %w", n.timeout, err)
		}
		return err
	}

	elapsed := time.Since(start)
	n.SetOutput(ExitCodeOutput, code)
	n.SetOutput(DurationOutput, elapsed.Seconds())
	if n.Cur.Deck != "" {
		n.SetOutput(DeckKey, n.Cur.Deck)
	}
	logger.Debug("Command finished.", "elapsed", elapsed, "files", len(n.OutputFiles()))
	return nil
}

// StateVariables lists the row columns the templates and the command read.
func (n *Node) StateVariables(row statetable.Row) []string {
	seen := make(map[string]bool)
	var vars []string
	add := func(fields []string, err error) {
		if err != nil {
			return
		}
		for _, f := range fields {
			if row.Has(f) && !seen[f] {
				seen[f] = true
				vars = append(vars, f)
			}
		}
	}
	if n.settings.Template != "" {
		add(tmpl.Fields(n.settings.Template))
	}
	if n.settings.ParameterTemplate != "" {
		add(tmpl.Fields(n.settings.ParameterTemplate))
	}
	add(tmpl.TextFields(n.settings.Command))
	sort.Strings(vars)
	return vars
}

// StaticFiles lists the templates, the env file and every file matching the
// static_files patterns, each path once.
func (n *Node) StaticFiles() []string {
	var files []string
	seen := make(map[string]bool)
	add := func(paths ...string) {
		for _, f := range paths {
			if f != "" && !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	add(n.settings.Template, n.settings.ParameterTemplate, n.settings.EnvFile)
	for _, pattern := range n.settings.StaticFiles {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			continue
		}
		add(matches...)
	}
	return files
}

func envLookup(env []string) func(string) string {
	vars := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return func(name string) string { return vars[name] }
}
