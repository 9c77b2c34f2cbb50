// SPDX-License-Identifier: MIT

// Package remux live-muxes a split video/audio pair into fragmented MP4 by
// spawning the external media tool and relaying its stdout to the consumer.
// The subprocess is scoped to the request: any exit path reaps it.
package remux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"ytbridge/internal/apierr"
	"ytbridge/internal/headers"
	"ytbridge/internal/metrics"
	"ytbridge/internal/procgroup"
)

const (
	// chunkSize is the stdout read granularity.
	chunkSize = 64 * 1024

	// waitDelay bounds how long a killed subprocess may linger before the
	// runtime forcibly reaps its pipes.
	waitDelay = 5 * time.Second
)

// Pipeline spawns remux subprocesses, bounding how many run at once.
type Pipeline struct {
	command string
	logger  zerolog.Logger
	slots   *semaphore.Weighted
}

// New creates a Pipeline running the given media-tool binary. maxConcurrent
// bounds simultaneous subprocesses; zero or negative means 8.
func New(command string, maxConcurrent int64, logger zerolog.Logger) *Pipeline {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Pipeline{
		command: command,
		logger:  logger,
		slots:   semaphore.NewWeighted(maxConcurrent),
	}
}

// Args builds the full remux command line for the two input URLs.
func Args(videoURL, audioURL string, hdrs map[string]string) []string {
	kv := headers.KV(hdrs)

	args := []string{
		"-loglevel", "error",
		"-nostdin",
		"-hide_banner",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
		"-rw_timeout", "15000000",
	}
	args = append(args, kv...)
	args = append(args, "-i", videoURL)
	args = append(args, kv...)
	args = append(args, "-i", audioURL)
	args = append(args,
		"-c", "copy",
		"-movflags", "+frag_keyframe+empty_moov",
		"-f", "mp4",
		"pipe:1",
	)
	return args
}

// Stream runs the remux and writes the fragmented MP4 to w until EOF, the
// writer fails, or ctx is cancelled. The subprocess never outlives the call.
func (p *Pipeline) Stream(ctx context.Context, w io.Writer, videoURL, audioURL string, hdrs map[string]string) error {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return apierr.Wrap(apierr.KindBadGateway, err, "remux request cancelled")
	}
	defer p.slots.Release(1)

	cmd := exec.CommandContext(ctx, p.command, Args(videoURL, audioURL, hdrs)...)
	procgroup.Set(cmd)
	cmd.Cancel = func() error {
		// Reap the whole group, not just the root process.
		return procgroup.Signal(cmd, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, err, "remux stdout pipe failed")
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return apierr.New(apierr.KindInternal,
				"media tool not found at %q, set FFMPEG_CMD or install it", p.command)
		}
		return apierr.Wrap(apierr.KindInternal, err, "failed to start media tool")
	}

	metrics.IncRemuxActive()
	defer metrics.DecRemuxActive()

	p.logger.Debug().
		Int("pid", cmd.Process.Pid).
		Msg("remux subprocess started")

	relayErr := relay(w, stdout)
	if relayErr != nil {
		// Downstream is gone; stop pulling from the origins.
		_ = procgroup.Signal(cmd, syscall.SIGKILL)
	}

	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		metrics.IncRemuxRun("cancelled")
		p.logger.Debug().Int("pid", cmd.Process.Pid).Msg("remux cancelled by consumer")
		return ctx.Err()
	case relayErr != nil:
		metrics.IncRemuxRun("cancelled")
		return relayErr
	case waitErr != nil:
		metrics.IncRemuxRun("failure")
		tail := stderrExcerpt(stderrBuf.Bytes())
		p.logger.Error().
			Err(waitErr).
			Str("stderr", tail).
			Msg("remux subprocess failed")
		return apierr.New(apierr.KindBadGateway, "remux failed: %s", tail)
	}

	metrics.IncRemuxRun("success")
	return nil
}

// relay copies stdout to w in chunkSize reads, flushing after each write so
// the consumer sees fragments as they are produced.
func relay(w io.Writer, r io.Reader) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, chunkSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			metrics.AddProxyBytes(int64(n))
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return nil // pipe closed by kill; the wait result decides
		}
	}
}

func stderrExcerpt(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > 220 {
		s = s[len(s)-220:]
	}
	return s
}
