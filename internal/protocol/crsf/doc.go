// Package crsf is a streaming parser for the Crossfire (CRSF) radio link.
//
// Frames on the wire are
//
//	ADDR LEN TYPE PAYLOAD CRC
//
// where LEN counts TYPE, PAYLOAD and CRC, and CRC is CRC8/DVB-S2 over TYPE and
// PAYLOAD. Raw serial bytes are pushed into a fixed ring buffer and complete
// packets are drained with Next.
package crsf
