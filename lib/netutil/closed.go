// Copyright 2026 The OpenClaw Bridge Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal connection termination:
// EOF, closed connection, broken pipe, or connection reset. These errors occur
// during ordinary client disconnects, both for a stream listener connection
// that a client walked away from and for a control-plane HTTP client closing
// its socket mid-response.
//
// A client that closes its write side without a clean shutdown (full-close
// rather than half-close via CloseWrite) produces ECONNRESET and EPIPE
// instead of EOF on the listener's side. All four are expected and should
// not be logged as errors.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
