// Package subprocess spawns external tools and streams their output
// line-by-line to callbacks while the caller waits for exit.
package subprocess

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

var commandContext = exec.CommandContext

// Options configures one supervised run.
type Options struct {
	Binary       string
	Args         []string
	OnStdoutLine func(string)
	OnStderrLine func(string)
}

// Run executes the binary with piped output streams. Two concurrent readers
// deliver lines as they arrive, independent of each other and of the wait
// for exit; Run returns once the process has exited and both streams are
// drained. A non-zero exit status is returned as an error; callers decide
// whether output files, not just the exit code, signal real success.
func Run(ctx context.Context, opts Options) error {
	if strings.TrimSpace(opts.Binary) == "" {
		return errors.New("binary required")
	}

	cmd := commandContext(ctx, opts.Binary, opts.Args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", opts.Binary, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go scanLines(stdout, opts.OnStdoutLine, &wg)
	go scanLines(stderr, opts.OnStderrLine, &wg)
	// Readers must drain before Wait closes the pipes.
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", opts.Binary, err)
	}
	return nil
}

func scanLines(r io.Reader, fn func(string), wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
}

// ParseTrailingPercent extracts a trailing "NN%" token from a line, the way
// progress-printing tools report completion. The value is clamped to
// [0, 100].
func ParseTrailingPercent(line string) (float64, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasSuffix(trimmed, "%") {
		return 0, false
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return 0, false
	}
	token := strings.TrimSuffix(fields[len(fields)-1], "%")
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	return value, true
}
