// Package imu implements the serial-framed inertial measurement reader
// the control loop's sense phase polls every iteration. It embeds
// comm.RemoteDevice exactly as that package's doc comment prescribes;
// frames carry a trailing XMODEM CRC-16.
package imu

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/snksoft/crc"
	"github.com/tarm/serial"

	"github.com/openloop/podcore/comm"
	"github.com/openloop/podcore/podstate"
)

// ErrBadCRC is returned when a frame's trailing CRC does not match its
// payload.
var ErrBadCRC = errors.New("imu: CRC mismatch")

// ErrShortFrame is returned when a frame is too short to contain a
// payload and CRC.
var ErrShortFrame = errors.New("imu: frame too short")

const (
	// frameLen is the frame length: a payload of three float32 fields
	// (position_x, velocity_x, accel_x), big-endian, trailed by a 2-byte
	// CRC-16/XMODEM.
	frameLen = 3*4 + 2
)

var crcTable = crc.NewTable(crc.XMODEM)

// crcHelper computes the two-byte CRC trailer for buf.
func crcHelper(buf []byte) []byte {
	crcUint := crcTable.InitCrc()
	crcUint = crcTable.UpdateCrc(crcUint, buf)
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, crcTable.CRC16(crcUint))
	return out
}

// Reader is a serial-framed IMU reader built on comm.RemoteDevice,
// following that package's own minimal-example shape.
type Reader struct {
	comm.RemoteDevice
}

// NewReader returns a Reader configured to open device at path with the
// given baud rate.
func NewReader(path string, baud int) *Reader {
	cfg := &serial.Config{Name: path, Baud: baud}
	rd := comm.NewRemoteDevice(path, true, &comm.Terminators{Rx: '\n', Tx: '\n'}, cfg)
	return &Reader{RemoteDevice: rd}
}

// ReadIMU implements sensor.IMUReader: it requests a fresh sample frame
// and, on success, records it into st's kinematics.
func (r *Reader) ReadIMU(st *podstate.PodState) error {
	if err := r.Open(); err != nil {
		return err
	}
	resp, err := r.SendRecv([]byte("S"))
	if err != nil {
		return err
	}
	positionX, velocityX, accelX, err := decodeFrame(resp)
	if err != nil {
		return err
	}
	st.Kinematics.Set(positionX, velocityX, accelX)
	return nil
}

// decodeFrame validates and unpacks a frame into its three float32
// fields, returned as float64 for use in podstate.Kinematics.
func decodeFrame(frame []byte) (positionX, velocityX, accelX float64, err error) {
	if len(frame) < frameLen {
		return 0, 0, 0, ErrShortFrame
	}
	payload := frame[:frameLen-2]
	trailer := frame[frameLen-2 : frameLen]
	want := crcHelper(payload)
	if trailer[0] != want[0] || trailer[1] != want[1] {
		return 0, 0, 0, ErrBadCRC
	}
	positionX = float64(decodeFloat32(payload[0:4]))
	velocityX = float64(decodeFloat32(payload[4:8]))
	accelX = float64(decodeFloat32(payload[8:12]))
	return positionX, velocityX, accelX, nil
}

func decodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}
