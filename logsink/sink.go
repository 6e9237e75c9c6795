package logsink

import "github.com/openloop/podcore/comm"

// Sink forwards already-formatted log lines to a remote TCP endpoint
// using the same RemoteDevice primitive the rest of this codebase uses
// for every networked device. Forward runs synchronously on the caller's
// goroutine and swallows errors.
type Sink struct {
	rd comm.RemoteDevice
}

// NewSink returns a Sink that lazily dials addr over TCP on first Forward.
func NewSink(addr string) *Sink {
	return &Sink{rd: comm.NewRemoteDevice(addr, false, &comm.Terminators{Rx: '\n', Tx: '\n'}, nil)}
}

// Forward sends line to the remote collector, reconnecting if needed.
// Failures are not reported. While the link is down, each call blocks
// for the duration of RemoteDevice.Open's bounded reconnect attempt (a
// few seconds) before giving up.
func (s *Sink) Forward(line string) {
	if err := s.rd.Open(); err != nil {
		return
	}
	_ = s.rd.Send([]byte(line))
}

// Close closes the underlying connection.
func (s *Sink) Close() error {
	return s.rd.Close()
}
