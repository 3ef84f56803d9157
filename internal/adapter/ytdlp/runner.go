package ytdlp

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes the extraction tool and hands back both output streams.
// The real implementation shells out; tests substitute a canned one.
type Runner interface {
	Run(ctx context.Context, bin string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.Bytes(), stderr.Bytes(), err
}
