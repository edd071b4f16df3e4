package main

import (
	"io"
	"machine"
	"runtime"
	"time"
)

// SerialReadWriter is a serial port usable as an io.ReadWriter that can also
// report how many bytes are waiting to be read.
type SerialReadWriter interface {
	io.ReadWriter
	// Buffered returns the number of bytes currently buffered in the serial
	// device.
	Buffered() int
}

type serialIO struct {
	machine.Serialer
}

// WrapSerial wraps a machine.Serialer into a SerialReadWriter. Reads never
// return more than what is buffered; an empty buffer yields a short sleep and
// a zero-length read, which io.ReadFull retries.
func WrapSerial(serial machine.Serialer) SerialReadWriter {
	return serialIO{Serialer: serial}
}

func (s serialIO) Read(b []byte) (int, error) {
	n := min(s.Buffered(), len(b))
	if n == 0 {
		time.Sleep(time.Millisecond)
		return 0, nil
	}

	for i := 0; i < n; i++ {
		c, err := s.ReadByte()
		if err != nil {
			return i, err
		}
		b[i] = c
	}

	runtime.Gosched()
	return n, nil
}

func (s serialIO) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := s.WriteByte(c); err != nil {
			return i, err
		}
	}
	runtime.Gosched()
	return len(b), nil
}
