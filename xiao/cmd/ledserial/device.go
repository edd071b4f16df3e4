package main

import (
	"fmt"
	"machine"
	"time"

	"libdb.so/catpulse/ledserial"
	"libdb.so/catpulse/xiao/mainled"
)

// Device stores the current state of the device.
type Device struct {
	serial SerialReadWriter
	knob   machine.ADC

	interval   time.Duration
	lastSample time.Time
}

// NewDevice creates a new device.
func NewDevice(serial machine.Serialer, knobPin machine.Pin) *Device {
	machine.InitADC()
	knob := machine.ADC{Pin: knobPin}
	knob.Configure(machine.ADCConfig{})

	return &Device{
		serial: WrapSerial(serial),
		knob:   knob,
	}
}

// Run runs the device loop forever. Packets are handled as they arrive and
// the knob is sampled whenever the sample interval has passed, without ever
// blocking on either.
func (d *Device) Run() {
	for {
		if d.serial.Buffered() > 0 {
			p, err := ledserial.ReadIncomingPacket(d.serial)
			if err != nil {
				d.logError(err)
				continue
			}
			if err := d.handlePacket(p); err != nil {
				d.logError(err)
			}
		}

		if d.interval > 0 {
			now := time.Now()
			if now.Sub(d.lastSample) >= d.interval {
				d.lastSample = now
				d.sendPacket(ledserial.SamplePacket{Value: d.knob.Get()})
			}
		}

		time.Sleep(time.Millisecond)
	}
}

func (d *Device) log(msg string) {
	d.sendPacket(ledserial.LogPacket{Message: msg})
}

func (d *Device) logError(err error) {
	d.sendPacket(ledserial.ErrorPacket{Message: err.Error()})
}

func (d *Device) sendPacket(p ledserial.OutgoingPacket) {
	ledserial.WriteOutgoingPacket(d.serial, p)
}

func (d *Device) handlePacket(p ledserial.IncomingPacket) error {
	switch p := p.(type) {
	case ledserial.InitializePacket:
		if p.SampleIntervalMs < 1 {
			return fmt.Errorf("invalid sample interval: %dms", p.SampleIntervalMs)
		}
		d.interval = time.Duration(p.SampleIntervalMs) * time.Millisecond
		mainled.Off()
		d.log(fmt.Sprintf("sampling every %s", d.interval))

	case ledserial.ClearPacket:
		mainled.Off()

	case ledserial.SetLevelPacket:
		mainled.SetDuty(p.Duty)

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	d.sendPacket(ledserial.AckPacket{
		IncomingPacketType: p.Type(),
	})
	return nil
}
