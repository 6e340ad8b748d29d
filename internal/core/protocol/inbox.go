package protocol

import (
	"context"
	"errors"
	"io"
	"sync"
)

type frame struct {
	env Envelope
	err error
}

// Inbox runs a blocking frame reader on its own goroutine so that receivers
// can wait with a context. Malformed frames are reported and skipped; the
// first read error ends the inbox.
type Inbox struct {
	frames chan frame
	done   chan struct{}
	once   sync.Once
	err    error
}

// NewInbox starts reading frames with read until it fails or Close is called.
func NewInbox(size int, read func() ([]byte, error)) *Inbox {
	in := &Inbox{
		frames: make(chan frame, size),
		done:   make(chan struct{}),
	}
	go in.run(read)
	return in
}

func (in *Inbox) run(read func() ([]byte, error)) {
	defer close(in.frames)
	for {
		data, err := read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrConnectionClosed
			}
			in.err = err
			return
		}
		if len(data) == 0 {
			continue
		}
		env, err := Unmarshal(data)
		select {
		case in.frames <- frame{env: env, err: err}:
		case <-in.done:
			in.err = ErrConnectionClosed
			return
		}
	}
}

// Receive returns the next envelope.
func (in *Inbox) Receive(ctx context.Context) (Envelope, error) {
	select {
	case f, ok := <-in.frames:
		if !ok {
			return Envelope{}, in.err
		}
		return f.env, f.err
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// Close stops delivery. The reader itself unblocks when the underlying
// connection is closed.
func (in *Inbox) Close() {
	in.once.Do(func() { close(in.done) })
}
