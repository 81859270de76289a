package profile

import (
	"fmt"
	"strings"
)

// Variant names a fixed hardware configuration.
type Variant string

const (
	VariantWaveshareESP32S3ETH8DI8RO Variant = "WAVESHARE_ESP32S3_ETH_8DI_8RO"
	VariantDefaultESP32              Variant = "DEFAULT_ESP32"
)

// Variants returns the statically known variants.
func Variants() []Variant {
	return []Variant{VariantWaveshareESP32S3ETH8DI8RO, VariantDefaultESP32}
}

// ParseVariant resolves a variant name, ignoring case.
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants() {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// waveshareESP32S3ETH8DI8RO is the Waveshare ESP32-S3-ETH-8DI-8RO board.
func waveshareESP32S3ETH8DI8RO() *DeviceProfile {
	return &DeviceProfile{
		DeviceType:    "ESP32-S3-ETH-8DI-8RO",
		DeviceVersion: "1.0.0-waveshare",
		Chip:          ChipESP32S3,
		DebugBaud:     115200,
		I2C: &I2CBus{
			SDA:         42,
			SCL:         41,
			FrequencyHz: 400_000,
		},
		Relays: &RelayExpander{
			Address:     0x20,
			InputReg:    0x00,
			OutputReg:   0x01,
			PolarityReg: 0x02,
			ConfigReg:   0x03,
			Count:       8,
			ActiveHigh:  true,
			IndexMap:    []int{0, 1, 2, 3, 4, 5, 6, 7},
		},
		Inputs: &DigitalInputs{
			Count:     8,
			Pins:      []int{1, 2, 14, 21, 47, 48, 45, 0},
			ActiveLow: true, // internal pull-ups
		},
		LED: &StatusLED{
			Pin:        38,
			Count:      1,
			Brightness: 50,
		},
		Ethernet: &Ethernet{
			SPIHost:    "SPI3_HOST",
			CS:         10,
			SCK:        7,
			MISO:       3,
			MOSI:       6,
			INT:        4,
			RST:        5,
			PHY:        "W5500",
			PHYAddress: 1,
		},
		Features: NewFeatures(
			FeatureI2CRelay,
			FeatureDigitalInputs,
			FeatureWiFiFallback,
			FeatureRGBLED,
			FeatureEthernet,
		),
	}
}

// defaultESP32 is the fallback for boards without a dedicated table: no pins at all.
func defaultESP32() *DeviceProfile {
	return &DeviceProfile{DeviceType: "ESP32"}
}

var builtin = func() *Table {
	t := NewTable()
	t.mustDefine(VariantWaveshareESP32S3ETH8DI8RO, waveshareESP32S3ETH8DI8RO())
	t.mustDefine(VariantDefaultESP32, defaultESP32())
	return t
}()

// Load returns a copy of the built-in profile of v.
func Load(v Variant) (*DeviceProfile, error) {
	return builtin.Load(v)
}

// Builtin returns the table of built-in profiles.
func Builtin() *Table {
	return builtin
}

// Active loads and validates the variant selected at build time.
func Active() (*DeviceProfile, error) {
	p, err := Load(Selected)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", Selected, err)
	}
	return p, nil
}
