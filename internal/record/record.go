// Package record writes channel frames to a msgpack stream and plays such a
// stream back onto the bus.
package record

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/lintx/internal/bus"
	"github.com/danmuck/lintx/internal/messages"
	"github.com/vmihailenco/msgpack/v5"
)

const FormatVersion = 1

var (
	ErrBadHeader = errors.New("record: not a lintx frame recording")
	ErrVersion   = errors.New("record: unsupported recording version")
	ErrFlush     = errors.New("record: flush failed")
)

// Header opens every recording.
type Header struct {
	Magic   string    `msgpack:"magic"`
	Version int       `msgpack:"version"`
	Topic   string    `msgpack:"topic"`
	Started time.Time `msgpack:"started"`
}

const magic = "lintx-frames"

// Entry is one frame and its offset from the start of the recording.
type Entry struct {
	Offset time.Duration         `msgpack:"o"`
	Frame  messages.ChannelFrame `msgpack:"f"`
}

// Writer appends entries to a stream. Flush before closing the underlying
// writer.
type Writer struct {
	buf     *bufio.Writer
	enc     *msgpack.Encoder
	started time.Time
	count   int
}

func NewWriter(w io.Writer, topic string, started time.Time) (*Writer, error) {
	buf := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(buf)
	hdr := Header{Magic: magic, Version: FormatVersion, Topic: topic, Started: started}
	if err := enc.Encode(&hdr); err != nil {
		return nil, fmt.Errorf("record: write header: %w", err)
	}
	return &Writer{buf: buf, enc: enc, started: started}, nil
}

// Write stores frame stamped with at.
func (w *Writer) Write(at time.Time, frame messages.ChannelFrame) error {
	e := Entry{Offset: at.Sub(w.started), Frame: frame}
	if err := w.enc.Encode(&e); err != nil {
		return fmt.Errorf("record: write entry: %w", err)
	}
	w.count++
	return nil
}

func (w *Writer) Count() int {
	return w.count
}

func (w *Writer) Flush() error {
	return w.buf.Flush()
}

// Reader walks a recording.
type Reader struct {
	dec    *msgpack.Decoder
	header Header
}

func NewReader(r io.Reader) (*Reader, error) {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	var hdr Header
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if hdr.Magic != magic {
		return nil, ErrBadHeader
	}
	if hdr.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, hdr.Version)
	}
	return &Reader{dec: dec, header: hdr}, nil
}

func (r *Reader) Header() Header {
	return r.header
}

// Next returns io.EOF after the last entry.
func (r *Reader) Next() (Entry, error) {
	var e Entry
	if err := r.dec.Decode(&e); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("record: read entry: %w", err)
	}
	return e, nil
}

// Capture writes every frame sub wakes for until ctx is done. The writer is
// flushed on return and a flush failure is joined into the result.
func Capture(ctx context.Context, sub *bus.Subscription[messages.ChannelFrame], w *Writer, now func() time.Time) (err error) {
	defer func() {
		if ferr := w.Flush(); ferr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %w", ErrFlush, ferr))
		}
	}()
	for {
		frame, err := sub.ReadContext(ctx)
		if err != nil {
			return err
		}
		if err := w.Write(now(), frame); err != nil {
			return err
		}
	}
}

// Play publishes each entry at its offset scaled by 1/speed. It returns nil
// at the end of the stream.
func Play(ctx context.Context, r *Reader, speed float64, out bus.Publisher[messages.ChannelFrame]) error {
	if speed <= 0 {
		speed = 1
	}
	start := time.Now()
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		due := start.Add(time.Duration(float64(e.Offset) / speed))
		if wait := time.Until(due); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		out.Publish(e.Frame)
	}
}
