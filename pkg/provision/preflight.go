package provision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// TokenReader produces one candidate secret per call.
type TokenReader interface {
	ReadToken(ctx context.Context) (string, error)
}

// TerminalTokenReader prompts on stderr and reads the token from stdin. On a
// terminal the input is read without echo.
type TerminalTokenReader struct{}

// ReadToken reads one token candidate from the terminal.
func (r *TerminalTokenReader) ReadToken(_ context.Context) (string, error) {
	fmt.Fprint(os.Stderr, "Bot token: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return string(data), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return "", errors.New("stdin closed before a token was read")
	}
	return scanner.Text(), nil
}

// acquire retries produce up to maxAttempts times and returns the first
// value accepted by keep.
func acquire(ctx context.Context, produce func(context.Context) (string, error), keep func(string) bool, maxAttempts int) (string, bool) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return "", false
		}
		value, err := produce(ctx)
		if err != nil {
			continue
		}
		if keep(value) {
			return value, true
		}
	}
	return "", false
}

// AcquireToken obtains a non-empty bot token: the BOT_TOKEN environment
// variable wins, otherwise the reader is retried up to maxAttempts times.
// Surrounding whitespace is trimmed before the non-empty check.
func AcquireToken(ctx context.Context, reader TokenReader, maxAttempts int) (string, error) {
	if env := strings.TrimSpace(os.Getenv("BOT_TOKEN")); env != "" {
		return env, nil
	}

	produce := func(ctx context.Context) (string, error) {
		raw, err := reader.ReadToken(ctx)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(raw), nil
	}

	token, ok := acquire(ctx, produce, func(s string) bool { return s != "" }, maxAttempts)
	if !ok {
		return "", fmt.Errorf("no bot token after %d attempts: supply it via the BOT_TOKEN environment variable or paste it at the prompt", maxAttempts)
	}
	return token, nil
}

// preflight verifies root privilege and acquires the bot token. Nothing on
// the host is mutated before this step passes.
func (p *Pipeline) preflight(ctx context.Context) error {
	if uid := p.host.EffectiveUID(); uid != 0 {
		return stepError(ClassPrivilege, stepPreflight,
			fmt.Errorf("effective uid %d: this command mutates system state and must run as root (try sudo)", uid))
	}

	token, err := AcquireToken(ctx, p.opts.TokenReader, p.opts.TokenAttempts)
	if err != nil {
		return stepError(ClassInput, stepPreflight, err)
	}
	p.token = token

	return nil
}
