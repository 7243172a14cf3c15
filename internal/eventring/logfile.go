// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventring

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"filippo.io/age"
	"github.com/klauspost/compress/gzip"
)

// LogAppender mirrors ring events as newline-delimited JSON to a log
// file on disk. When the file grows past rotateBytes, it is closed,
// gzip-compressed into a timestamped sibling file, and a fresh file is
// opened at path.
//
// When a recipient is configured, the active segment is streamed
// through an age encryption writer so payloads mirrored to disk are
// not stored in the clear. This is independent of wire transport
// security — it protects the durable copy, not the socket.
type LogAppender struct {
	mu          sync.Mutex
	path        string
	rotateBytes int64
	recipient   age.Recipient

	file    *os.File
	writer  io.WriteCloser // either file itself, or an age encryption stream over it
	written int64
}

// NewLogAppender opens (creating if needed) the log file at path. If
// recipientStr is non-empty, it must parse as an age X25519 public
// recipient (age1...); every segment is then encrypted to it.
func NewLogAppender(path string, rotateBytes int64, recipientStr string) (*LogAppender, error) {
	if rotateBytes <= 0 {
		rotateBytes = 10 * 1024 * 1024
	}

	var recipient age.Recipient
	if recipientStr != "" {
		r, err := age.ParseX25519Recipient(recipientStr)
		if err != nil {
			return nil, fmt.Errorf("parsing log encryption recipient: %w", err)
		}
		recipient = r
	}

	a := &LogAppender{
		path:        path,
		rotateBytes: rotateBytes,
		recipient:   recipient,
	}
	if err := a.openSegment(); err != nil {
		return nil, err
	}
	return a, nil
}

// Append writes one event as a JSON line and rotates the segment if
// it has grown past the configured threshold.
func (a *LogAppender) Append(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event for log mirror: %w", err)
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()

	n, err := a.writer.Write(line)
	a.written += int64(n)
	if err != nil {
		return fmt.Errorf("writing to log mirror: %w", err)
	}
	if a.written >= a.rotateBytes {
		return a.rotateLocked()
	}
	return nil
}

// Close finalizes the active segment (flushing any in-flight age
// encryption MAC) and closes the underlying file.
func (a *LogAppender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeSegmentLocked()
}

func (a *LogAppender) openSegment() error {
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", a.path, err)
	}
	info, statErr := f.Stat()
	written := int64(0)
	if statErr == nil {
		written = info.Size()
	}

	a.file = f
	a.written = written
	if a.recipient != nil {
		w, err := age.Encrypt(f, a.recipient)
		if err != nil {
			f.Close()
			return fmt.Errorf("starting age encryption stream for %s: %w", a.path, err)
		}
		a.writer = w
	} else {
		a.writer = f
	}
	return nil
}

func (a *LogAppender) closeSegmentLocked() error {
	var errs []error
	if a.recipient != nil {
		// The age writer is distinct from the file; closing it
		// flushes the final MAC into the file before the file itself
		// is closed.
		if err := a.writer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing log segment: %v", errs)
	}
	return nil
}

// rotateLocked closes the current segment, gzip-compresses it to a
// timestamped sibling, and opens a fresh segment at the original
// path. Callers must hold a.mu.
func (a *LogAppender) rotateLocked() error {
	if err := a.closeSegmentLocked(); err != nil {
		return fmt.Errorf("rotating log mirror: %w", err)
	}

	rotatedName := fmt.Sprintf("%s.%s.gz", a.path, time.Now().UTC().Format("20060102T150405"))
	if err := gzipFile(a.path, rotatedName); err != nil {
		// Rotation compression failing is not fatal to the daemon;
		// reopen the segment in place so logging keeps working and
		// surface the error to the caller to log.
		if openErr := a.openSegment(); openErr != nil {
			return fmt.Errorf("%w (and reopening segment also failed: %v)", err, openErr)
		}
		return fmt.Errorf("compressing rotated log segment: %w", err)
	}

	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing rotated log segment %s: %w", a.path, err)
	}
	return a.openSegment()
}

// gzipFile compresses src into dst and leaves src untouched; the
// caller removes src once this returns successfully.
func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}
