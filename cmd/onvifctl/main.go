// Command onvifctl drives one ONVIF camera: it serves the event callback and a
// control API, or runs one-shot status and PTZ commands.
package main

func main() {
	Execute()
}
