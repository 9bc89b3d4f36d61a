// Package iox provides I/O helpers for resource cleanup and half-closed
// connections.
package iox

import "io"

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(ln))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
func DiscardErr(fn func() error) { _ = fn() }

// WriteCloser is implemented by connections that can shut down their write
// side independently (*net.TCPConn, *net.UnixConn).
type WriteCloser interface {
	CloseWrite() error
}

// CloseWrite signals end-of-stream to the peer while keeping the read side
// open. Writers without half-close support return nil; end-of-stream is
// then only signalled by the final Close.
func CloseWrite(w any) error {
	if hc, ok := w.(WriteCloser); ok {
		return hc.CloseWrite()
	}
	return nil
}
