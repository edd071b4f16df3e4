// Package mainled drives the onboard NeoPixel of the Seeed XIAO RP2040.
package mainled

import (
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

var (
	led         ws2812.Device
	power       = machine.GPIO11
	initialized bool
)

func initLED() {
	if !initialized {
		// https://wiki.seeedstudio.com/XIAO-RP2040-with-Arduino/
		power.Configure(machine.PinConfig{Mode: machine.PinOutput})
		power.Low()

		machine.GPIO12.Configure(machine.PinConfig{Mode: machine.PinOutput})
		led = ws2812.New(machine.GPIO12)

		initialized = true
	}
}

// SetRGB lights the LED in the given color.
func SetRGB(r, g, b uint8) {
	initLED()
	power.High()
	// The NeoPixel expects GRB.
	led.WriteByte(g)
	led.WriteByte(r)
	led.WriteByte(b)
}

// SetDuty lights the LED white at the given 16-bit duty cycle. Zero turns it
// off.
func SetDuty(duty uint16) {
	if duty == 0 {
		Off()
		return
	}
	v := uint8(duty >> 8)
	SetRGB(v, v, v)
}

// Off turns the LED off.
func Off() {
	initLED()
	SetRGB(0, 0, 0)
	power.Low()
}
