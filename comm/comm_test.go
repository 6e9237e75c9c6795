package comm_test

import (
	"io"
	"log"
	"net"
	"testing"

	"github.com/openloop/podcore/comm"
)

// tcpEchoServer accepts one connection at a time and copies whatever
// arrives straight back.
func tcpEchoServer(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { io.Copy(conn, conn) }()
		}
	}()
	return ln, nil
}

func TestRemoteDeviceSendRecvRoundTrips(t *testing.T) {
	ln, err := tcpEchoServer("localhost:0")
	if err != nil {
		t.Fatalf("could not start echo server: %v", err)
	}
	defer ln.Close()

	rd := comm.NewRemoteDevice(ln.Addr().String(), false, &comm.Terminators{Rx: '\n', Tx: '\n'}, nil)
	if err := rd.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rd.Close()

	resp, err := rd.SendRecv([]byte("ping"))
	if err != nil {
		t.Fatalf("SendRecv: %v", err)
	}
	if string(resp) != "ping" {
		t.Fatalf("expected echo of %q, got %q", "ping", resp)
	}
}

func TestRemoteDeviceOpenIsIdempotent(t *testing.T) {
	ln, err := tcpEchoServer("localhost:0")
	if err != nil {
		t.Fatalf("could not start echo server: %v", err)
	}
	defer ln.Close()

	rd := comm.NewRemoteDevice(ln.Addr().String(), false, nil, nil)
	if err := rd.Open(); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := rd.Open(); err != nil {
		t.Fatalf("second Open on an already-open connection should be a no-op, got: %v", err)
	}
	if err := rd.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRemoteDeviceSendRecvWithoutOpenFails(t *testing.T) {
	rd := comm.NewRemoteDevice("localhost:0", false, nil, nil)
	if _, err := rd.SendRecv([]byte("x")); err != comm.ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestRemoteDeviceOpenToClosedPortErrors(t *testing.T) {
	// Nothing is listening on this port. Open retries a "connection
	// refused" error across its full backoff window (comm.go's Open),
	// so this exercises that retry path rather than a fast failure.
	rd := comm.NewRemoteDevice("localhost:1", false, nil, nil)
	if err := rd.Open(); err == nil {
		t.Fatal("expected an error connecting to a closed port")
	}
}

func init() {
	log.SetFlags(0)
}
