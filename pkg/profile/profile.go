package profile

import (
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Chip identifies the target SoC. It determines which GPIO numbers exist.
type Chip string

const (
	ChipESP32   Chip = "esp32"
	ChipESP32S3 Chip = "esp32s3"
)

// ValidGPIO reports whether n is a GPIO that exists on the chip.
func (c Chip) ValidGPIO(n int) bool {
	switch c {
	case ChipESP32S3:
		// GPIO22-25 are not bonded out on the S3.
		return (n >= 0 && n <= 21) || (n >= 26 && n <= 48)
	case ChipESP32:
		if n == 20 || n == 24 || (n >= 28 && n <= 31) {
			return false
		}
		return n >= 0 && n <= 39
	}
	return false
}

// Feature is a capability tag enabled for a board.
type Feature string

const (
	FeatureI2CRelay      Feature = "I2C_RELAY"
	FeatureDigitalInputs Feature = "DIGITAL_INPUTS"
	FeatureWiFiFallback  Feature = "WIFI_FALLBACK"
	FeatureRGBLED        Feature = "RGB_LED"
	FeatureEthernet      Feature = "ETHERNET"
)

// Known reports whether f is one of the capabilities the firmware understands.
func (f Feature) Known() bool {
	switch f {
	case FeatureI2CRelay, FeatureDigitalInputs, FeatureWiFiFallback, FeatureRGBLED, FeatureEthernet:
		return true
	}
	return false
}

// Features is a set of enabled capabilities, kept sorted.
type Features []Feature

// NewFeatures builds a sorted, de-duplicated feature set.
func NewFeatures(fs ...Feature) Features {
	out := make(Features, 0, len(fs))
	for _, f := range fs {
		if !out.Has(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether f is enabled.
func (fs Features) Has(f Feature) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

// Equal reports whether fs and other enable the same capabilities, ignoring
// order and repeats.
func (fs Features) Equal(other Features) bool {
	for _, f := range fs {
		if !other.Has(f) {
			return false
		}
	}
	for _, f := range other {
		if !fs.Has(f) {
			return false
		}
	}
	return true
}

// UnmarshalYAML decodes a feature list into a sorted set.
func (fs *Features) UnmarshalYAML(value *yaml.Node) error {
	var list []Feature
	if err := value.Decode(&list); err != nil {
		return err
	}
	*fs = NewFeatures(list...)
	return nil
}

func (fs Features) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// I2CBus describes the I2C controller wiring.
type I2CBus struct {
	SDA         int `yaml:"sda_pin"`
	SCL         int `yaml:"scl_pin"`
	FrequencyHz int `yaml:"frequency_hz"`
}

// RelayExpander describes the I2C GPIO expander (TCA9554) that drives the relays.
type RelayExpander struct {
	Address     uint8 `yaml:"i2c_address"`
	InputReg    uint8 `yaml:"input_reg"`
	OutputReg   uint8 `yaml:"output_reg"`
	PolarityReg uint8 `yaml:"polarity_reg"`
	ConfigReg   uint8 `yaml:"config_reg"`
	Count       int   `yaml:"relay_count"`
	ActiveHigh  bool  `yaml:"active_high"`
	IndexMap    []int `yaml:"relay_index_map"` // IndexMap[i] is the expander bit of relay i+1
}

// DigitalInputs describes the directly wired digital inputs.
type DigitalInputs struct {
	Count     int   `yaml:"count"`
	Pins      []int `yaml:"pins"` // Pins[i] is the GPIO of input i+1
	ActiveLow bool  `yaml:"active_low"`
}

// StatusLED describes the addressable RGB status LED (WS2812).
type StatusLED struct {
	Pin        int `yaml:"pin"`
	Count      int `yaml:"count"`
	Brightness int `yaml:"brightness"` // 0-255
}

// Ethernet describes the SPI attached Ethernet PHY (W5500).
type Ethernet struct {
	SPIHost    string `yaml:"spi_host"`
	CS         int    `yaml:"cs_pin"`
	SCK        int    `yaml:"sck_pin"`
	MISO       int    `yaml:"miso_pin"`
	MOSI       int    `yaml:"mosi_pin"`
	INT        int    `yaml:"int_pin"`
	RST        int    `yaml:"rst_pin"`
	PHY        string `yaml:"phy_type"`
	PHYAddress int    `yaml:"phy_address"`
}

// DeviceProfile is the hardware wiring and capability table of one board variant.
// A profile handed out by Load or Table.Load is a private copy and must be treated
// as read-only.
type DeviceProfile struct {
	DeviceType    string         `yaml:"device_type"`
	DeviceVersion string         `yaml:"device_version,omitempty"`
	Chip          Chip           `yaml:"chip,omitempty"`
	DebugBaud     int            `yaml:"debug_baud,omitempty"`
	I2C           *I2CBus        `yaml:"i2c_bus,omitempty"`
	Relays        *RelayExpander `yaml:"relay_expander,omitempty"`
	Inputs        *DigitalInputs `yaml:"digital_inputs,omitempty"`
	LED           *StatusLED     `yaml:"status_led,omitempty"`
	Ethernet      *Ethernet      `yaml:"ethernet,omitempty"`
	Features      Features       `yaml:"feature_flags,omitempty"`
}

// Clone returns a deep copy of the profile.
func (p *DeviceProfile) Clone() *DeviceProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.I2C != nil {
		v := *p.I2C
		c.I2C = &v
	}
	if p.Relays != nil {
		v := *p.Relays
		v.IndexMap = append([]int(nil), p.Relays.IndexMap...)
		c.Relays = &v
	}
	if p.Inputs != nil {
		v := *p.Inputs
		v.Pins = append([]int(nil), p.Inputs.Pins...)
		c.Inputs = &v
	}
	if p.LED != nil {
		v := *p.LED
		c.LED = &v
	}
	if p.Ethernet != nil {
		v := *p.Ethernet
		c.Ethernet = &v
	}
	c.Features = append(Features(nil), p.Features...)
	return &c
}

// RelayCount returns the number of relays, 0 when the board has no expander.
func (p *DeviceProfile) RelayCount() int {
	if p.Relays == nil {
		return 0
	}
	return p.Relays.Count
}

// InputCount returns the number of digital inputs, 0 when the board has none.
func (p *DeviceProfile) InputCount() int {
	if p.Inputs == nil {
		return 0
	}
	return p.Inputs.Count
}

// RelayBit returns the expander bit driving relay n (1-based).
func (p *DeviceProfile) RelayBit(n int) (int, error) {
	count := p.RelayCount()
	if n < 1 || n > count || n > len(p.Relays.IndexMap) {
		return 0, &OutOfRangeError{Field: "relay_number", Value: n, Min: 1, Max: count}
	}
	return p.Relays.IndexMap[n-1], nil
}

// RelayMask returns the output register mask of relay n (1-based).
func (p *DeviceProfile) RelayMask(n int) (uint8, error) {
	bit, err := p.RelayBit(n)
	if err != nil {
		return 0, err
	}
	return 1 << uint(bit), nil
}

// DigitalInputPin returns the GPIO of digital input n (1-based).
func (p *DeviceProfile) DigitalInputPin(n int) (int, error) {
	count := p.InputCount()
	if n < 1 || n > count || n > len(p.Inputs.Pins) {
		return 0, &OutOfRangeError{Field: "input_number", Value: n, Min: 1, Max: count}
	}
	return p.Inputs.Pins[n-1], nil
}

// PinAssignment is one physical pin and every role claiming it.
type PinAssignment struct {
	Pin   int
	Roles []string
}

// PinMap lists every physical pin used by the profile, sorted by pin number.
func (p *DeviceProfile) PinMap() []PinAssignment {
	owners := make(map[int][]string)
	for _, c := range p.pinClaims() {
		owners[c.pin] = append(owners[c.pin], c.role)
	}
	out := make([]PinAssignment, 0, len(owners))
	for pin, roles := range owners {
		out = append(out, PinAssignment{Pin: pin, Roles: roles})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pin < out[j].Pin })
	return out
}

type pinClaim struct {
	pin  int
	role string
}

// pinClaims lists the pins of every present section in a stable order.
func (p *DeviceProfile) pinClaims() []pinClaim {
	var claims []pinClaim
	if p.I2C != nil {
		claims = append(claims,
			pinClaim{p.I2C.SDA, "i2c.sda"},
			pinClaim{p.I2C.SCL, "i2c.scl"},
		)
	}
	if p.Inputs != nil {
		for i, pin := range p.Inputs.Pins {
			claims = append(claims, pinClaim{pin, "di." + strconv.Itoa(i+1)})
		}
	}
	if p.LED != nil {
		claims = append(claims, pinClaim{p.LED.Pin, "led"})
	}
	if e := p.Ethernet; e != nil {
		claims = append(claims,
			pinClaim{e.CS, "eth.cs"},
			pinClaim{e.SCK, "eth.sck"},
			pinClaim{e.MISO, "eth.miso"},
			pinClaim{e.MOSI, "eth.mosi"},
			pinClaim{e.INT, "eth.int"},
			pinClaim{e.RST, "eth.rst"},
		)
	}
	return claims
}
