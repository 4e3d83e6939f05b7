package tooling

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Command is a platform utility with its fixed arguments
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// maxLineSize bounds a single output line; package listings can be wide
const maxLineSize = 1024 * 1024

// Adapter is the single chokepoint between collectors and platform utilities
type Adapter struct {
	runner  Runner
	logger  *zap.Logger
	decoder *encoding.Decoder // nil means output is already UTF-8
}

// NewAdapter creates an adapter. encodingName is an IANA code page name
// ("IBM437", "GBK", ...) the tools print in; empty means UTF-8.
func NewAdapter(runner Runner, logger *zap.Logger, encodingName string) (*Adapter, error) {
	a := &Adapter{runner: runner, logger: logger}

	if encodingName != "" {
		enc, err := ianaindex.IANA.Encoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("unknown tool encoding %q: %w", encodingName, err)
		}
		if enc == nil {
			return nil, fmt.Errorf("tool encoding %q is not supported", encodingName)
		}
		a.decoder = enc.NewDecoder()
	}

	return a, nil
}

// Lines runs cmd and returns its standard output split into lines.
// On any launch failure it logs a warning and returns ok=false with no lines.
// A tool that exits non-zero but still wrote to stdout counts as captured.
func (a *Adapter) Lines(ctx context.Context, cmd Command) ([]string, bool) {
	res, err := a.runner.Run(ctx, cmd.Name, cmd.Args...)
	if err != nil {
		a.logFailure(cmd, err)
		return []string{}, false
	}

	if res.ExitCode != 0 {
		if len(bytes.TrimSpace(res.Stdout)) == 0 {
			a.logFailure(cmd, &ToolError{Tool: cmd.Name, Kind: ErrToolFailed, ExitCode: res.ExitCode, Stderr: res.Stderr})
			return []string{}, false
		}
		a.logger.Debug("Tool exited non-zero, using captured output",
			zap.String("command", cmd.String()),
			zap.Int("exit_code", res.ExitCode))
	}

	text, err := a.decode(res.Stdout)
	if err != nil {
		a.logFailure(cmd, err)
		return []string{}, false
	}

	return splitLines(text), true
}

// Text runs cmd and returns its full standard output. Unlike Lines, any
// non-zero exit is an error, so callers can tell "could not check" apart
// from "checked and found nothing".
func (a *Adapter) Text(ctx context.Context, cmd Command) (string, error) {
	res, err := a.runner.Run(ctx, cmd.Name, cmd.Args...)
	if err != nil {
		a.logFailure(cmd, err)
		return "", err
	}

	if res.ExitCode != 0 {
		err := &ToolError{Tool: cmd.Name, Kind: ErrToolFailed, ExitCode: res.ExitCode, Stderr: res.Stderr}
		a.logFailure(cmd, err)
		return "", err
	}

	text, err := a.decode(res.Stdout)
	if err != nil {
		a.logFailure(cmd, err)
		return "", err
	}
	return text, nil
}

func (a *Adapter) decode(out []byte) (string, error) {
	if a.decoder == nil {
		return string(out), nil
	}
	decoded, _, err := transform.Bytes(a.decoder, out)
	if err != nil {
		return "", fmt.Errorf("failed to decode tool output: %w", err)
	}
	return string(decoded), nil
}

func (a *Adapter) logFailure(cmd Command, err error) {
	fields := []zap.Field{
		zap.String("command", cmd.String()),
		zap.String("kind", Kind(err)),
		zap.Error(err),
	}
	if te, ok := err.(*ToolError); ok && te.Stderr != "" {
		fields = append(fields, zap.String("stderr", te.Stderr))
	}
	a.logger.Warn("Platform tool unavailable", fields...)
}

// splitLines splits text on newlines, dropping the trailing \r of CRLF output
func splitLines(text string) []string {
	lines := []string{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	// A line longer than maxLineSize truncates the listing; keep what we have
	return lines
}
