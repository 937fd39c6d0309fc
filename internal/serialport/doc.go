// Package serialport owns serial device access for the acquisition loops.
//
// Ownership boundary:
// - opening tty devices with a bounded read timeout
// - the read pump that separates benign timeouts from real read errors
// - retry pacing after read errors
package serialport
