package main

import "machine"

func main() {
	NewDevice(machine.Serial, machine.A0).Run()
}
