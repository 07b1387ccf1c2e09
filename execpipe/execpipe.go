// Package execpipe runs external filter commands.
package execpipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/goaux/stacktrace/v2"
)

// CheckPath checks if the given executable exists in the system's PATH.
// It returns an error if the executable is not found, or nil if it is.
func CheckPath(executable string) error {
	_, err := stacktrace.Trace2(exec.LookPath(executable))
	return err
}

// Run executes name with args, feeding r to its stdin and copying its stdout
// to w. The command is killed when ctx is done.
//
// On failure the error names the command and carries the captured stderr.
func Run(ctx context.Context, w io.Writer, r io.Reader, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r
	cmd.Stdout = w
	stderr := new(bytes.Buffer)
	cmd.Stderr = stderr
	if err := stacktrace.Trace(cmd.Run()); err != nil {
		return fmt.Errorf("error: %s, cause=%w, stderr=%q", name, err, stderr.String())
	}
	return nil
}

// Filter pipes text through argv and returns the command's output.
// Every "{}" in the arguments is replaced by path.
func Filter(ctx context.Context, argv []string, path, text string) (string, error) {
	if len(argv) == 0 {
		return text, nil
	}
	args := make([]string, len(argv)-1)
	for i, a := range argv[1:] {
		args[i] = strings.ReplaceAll(a, "{}", path)
	}
	out := new(bytes.Buffer)
	if err := Run(ctx, out, strings.NewReader(text), argv[0], args...); err != nil {
		return "", err
	}
	return out.String(), nil
}
