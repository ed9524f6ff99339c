package sensor

import "strings"

// DefaultName returns the display name given to a device that is attached
// to a building before anyone named it. Devices that have already reported
// readings are known CO2 sensors; anything else is a new device.
func DefaultName(hardwareID string, reporting bool) string {
	suffix := []rune(strings.TrimSpace(hardwareID))
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	if reporting {
		return "CO2 Sensor " + string(suffix)
	}
	return "New Device " + string(suffix)
}
