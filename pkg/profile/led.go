package profile

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Color is an 8-bit RGB triple as sent to a WS2812.
type Color struct {
	R, G, B uint8
}

// Status colours used by the firmware.
var (
	ColorOff        = Color{}
	ColorConfigMode = Color{B: 255}
	ColorOnline     = Color{G: 255}
	ColorError      = Color{R: 255}
	ColorRelayOn    = Color{R: 255, G: 160}
)

// StatusColor is a firmware state and the colour it shows.
type StatusColor struct {
	State string
	Color Color
}

// StatusColors lists the non-off status colours.
func StatusColors() []StatusColor {
	return []StatusColor{
		{"config mode", ColorConfigMode},
		{"online", ColorOnline},
		{"relay on", ColorRelayOn},
		{"error", ColorError},
	}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Scale applies the LED brightness to c.
func (l StatusLED) Scale(c Color) Color {
	b := math32.Max(0, math32.Min(float32(l.Brightness), maxBrightness)) / maxBrightness
	scale := func(v uint8) uint8 {
		return uint8(math32.Round(float32(v) * b))
	}
	return Color{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}
