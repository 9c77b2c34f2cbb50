// SPDX-License-Identifier: MIT

package extractor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"ytbridge/internal/apierr"
	"ytbridge/internal/config"
	"ytbridge/internal/metrics"
	"ytbridge/internal/probe"
)

// extractLocal invokes the extractor binary, retrying once with the opposite
// network family when the configured mode permits it and the first failure
// looks like a network error.
func (e *Extractor) extractLocal(ctx context.Context, url string) (*probe.Probe, error) {
	first, fallback := familyFlags(e.cfg.Net)
	if hasFamilyFlag(e.cfg.ExtraArgs) {
		// The user pinned a family themselves; don't second-guess it.
		first, fallback = "", ""
	}

	p, err := e.runLocalOnce(ctx, url, first)
	if err != nil && fallback != "" && looksLikeNetworkError(err.Error()) {
		metrics.IncExtractorNetFallback()
		e.logger.Warn().
			Err(err).
			Str("retry_flag", fallback).
			Msg("extractor network failure, retrying with opposite family")
		return e.runLocalOnce(ctx, url, fallback)
	}
	return p, err
}

func (e *Extractor) runLocalOnce(ctx context.Context, url, familyFlag string) (*probe.Probe, error) {
	args := e.buildLocalArgs(url, familyFlag)

	stdout, stderr, exitCode, err := e.run(ctx, e.cfg.Command, args)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, apierr.New(apierr.KindInternal,
				"extractor not found at %q, set YTDLP_CMD or mount the binary", e.cfg.Command)
		}
		// Non-zero exits still often carry valid JSON; only hard spawn
		// failures end up here.
		if len(bytes.TrimSpace(stdout)) == 0 {
			return nil, apierr.Wrap(apierr.KindBadGateway, err, "extractor failed: %s", stderrTail(stderr))
		}
	}
	if exitCode != 0 {
		e.logger.Debug().
			Int("exit_code", exitCode).
			Str("stderr", stderrTail(stderr)).
			Msg("extractor exited non-zero, attempting to parse stdout anyway")
	}

	return parseProbeOutput(stdout, stderr)
}

// buildLocalArgs assembles the command line: fixed safety flags, user extras,
// family pinning, cookies and sponsorblock marking.
func (e *Extractor) buildLocalArgs(url, familyFlag string) []string {
	args := []string{
		url,
		"--dump-json",
		"--no-warnings",
		"--no-progress",
		"--ignore-config",
	}
	args = append(args, e.cfg.ExtraArgs...)
	if familyFlag != "" {
		args = append(args, familyFlag)
	}
	if e.cfg.Cookies != "" {
		args = append(args, "--cookies", e.cfg.Cookies)
	}
	if e.cfg.SponsorBlock {
		args = append(args, "--sponsorblock-mark", "all")
	}
	return args
}

// familyFlags maps the net mode to the flag for the first attempt and, where
// fallback applies, the flag for the single retry.
func familyFlags(net string) (first, fallback string) {
	switch net {
	case config.NetIPv6:
		return "--force-ipv6", "--force-ipv4"
	case config.NetAuto:
		return "--force-ipv4", "--force-ipv6"
	default:
		return "--force-ipv4", ""
	}
}

func hasFamilyFlag(args []string) bool {
	for _, a := range args {
		if a == "--force-ipv4" || a == "--force-ipv6" || a == "-4" || a == "-6" {
			return true
		}
	}
	return false
}

// runCommand executes the binary capturing stdout and stderr separately.
// The exit code is reported but never short-circuits parsing.
func runCommand(ctx context.Context, name string, args []string) (stdout, stderr []byte, exitCode int, err error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	exitCode = 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The process ran and exited non-zero; stdout may still hold JSON.
		err = nil
	}
	return outBuf.Bytes(), errBuf.Bytes(), exitCode, err
}
