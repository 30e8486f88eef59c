package stream

import (
	"io"

	sse "github.com/tmaxmax/go-sse"
)

// message is one dispatched server-sent event.
type message struct {
	Event string
	Data  string
	ID    string
}

// readMessages parses an event stream and calls fn for every dispatched
// message that carries data. It returns the reader's error, or io.EOF when
// the stream ends.
func readMessages(r io.Reader, fn func(message)) error {
	for ev, err := range sse.Read(r, nil) {
		if err != nil {
			return err
		}
		if ev.Data == "" {
			continue
		}
		fn(message{Event: ev.Type, Data: ev.Data, ID: ev.LastEventID})
	}
	return io.EOF
}
