//go:build linux

package ads1115

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// ReadyLine watches the ALERT/RDY pin. The pin idles high and pulses low when
// a conversion completes.
type ReadyLine struct {
	line *gpiocdev.Line
	ch   chan struct{}
}

func OpenReadyLine(chip string, offset int) (*ReadyLine, error) {
	r := &ReadyLine{ch: make(chan struct{}, 1)}
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(r.handle))
	if err != nil {
		return nil, fmt.Errorf("ads1115: request ready line %s:%d: %w", chip, offset, err)
	}
	r.line = line
	return r, nil
}

func (r *ReadyLine) handle(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	select {
	case r.ch <- struct{}{}:
	default:
	}
}

func (r *ReadyLine) Ready() <-chan struct{} {
	return r.ch
}

func (r *ReadyLine) Close() error {
	return r.line.Close()
}
