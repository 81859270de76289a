package profile

import (
	"errors"
	"fmt"

	"github.com/blang/semver"
)

const (
	// maxExpanderRelays is the width of the TCA9554 output port.
	maxExpanderRelays = 8
	maxI2CHz          = 1_000_000
	maxBrightness     = 255
)

// Validate checks the cross-field invariants of the profile. Every violation is
// reported; the result matches the relevant sentinels through errors.Is.
func (p *DeviceProfile) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if p.DeviceType == "" {
		add(fmt.Errorf("%w: device_type", ErrMissingSection))
	}
	if p.DeviceVersion != "" {
		if _, err := semver.Parse(p.DeviceVersion); err != nil {
			add(fmt.Errorf("%w: %q: %v", ErrInvalidVersion, p.DeviceVersion, err))
		}
	}

	add(p.checkFeatures())
	add(p.checkI2C())
	for _, err := range p.checkRelays() {
		add(err)
	}
	add(p.checkInputs())
	for _, err := range p.checkLED() {
		add(err)
	}
	if p.Ethernet != nil && p.Ethernet.SPIHost == "" {
		add(fmt.Errorf("%w: ethernet.spi_host", ErrMissingSection))
	}
	for _, err := range p.checkPins() {
		add(err)
	}

	return errors.Join(errs...)
}

func (p *DeviceProfile) checkFeatures() error {
	var errs []error
	for _, f := range p.Features {
		if !f.Known() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownFeature, f))
		}
	}
	need := func(f Feature, present bool, section string) {
		if p.Features.Has(f) && !present {
			errs = append(errs, fmt.Errorf("%w: %s requires %s", ErrMissingSection, f, section))
		}
	}
	need(FeatureI2CRelay, p.I2C != nil, "i2c_bus")
	need(FeatureI2CRelay, p.Relays != nil, "relay_expander")
	need(FeatureDigitalInputs, p.Inputs != nil, "digital_inputs")
	need(FeatureRGBLED, p.LED != nil, "status_led")
	need(FeatureEthernet, p.Ethernet != nil, "ethernet")
	return errors.Join(errs...)
}

func (p *DeviceProfile) checkI2C() error {
	if p.I2C == nil {
		return nil
	}
	if p.I2C.FrequencyHz < 1 || p.I2C.FrequencyHz > maxI2CHz {
		return &OutOfRangeError{Field: "i2c_bus.frequency_hz", Value: p.I2C.FrequencyHz, Min: 1, Max: maxI2CHz}
	}
	return nil
}

func (p *DeviceProfile) checkRelays() []error {
	r := p.Relays
	if r == nil {
		return nil
	}
	var errs []error
	if r.Address < 0x08 || r.Address > 0x77 {
		errs = append(errs, &OutOfRangeError{Field: "relay_expander.i2c_address", Value: int(r.Address), Min: 0x08, Max: 0x77})
	}
	if r.Count < 1 || r.Count > maxExpanderRelays {
		errs = append(errs, &OutOfRangeError{Field: "relay_expander.relay_count", Value: r.Count, Min: 1, Max: maxExpanderRelays})
	}
	if len(r.IndexMap) != r.Count {
		errs = append(errs, &CountMismatchError{Field: "relay_expander.relay_index_map", Expected: r.Count, Actual: len(r.IndexMap)})
	}
	// Length match, range and uniqueness together make the map a permutation of [0, Count-1].
	seen := make(map[int]int, len(r.IndexMap))
	for i, bit := range r.IndexMap {
		if bit < 0 || bit >= r.Count {
			errs = append(errs, &OutOfRangeError{Field: fmt.Sprintf("relay_expander.relay_index_map[%d]", i), Value: bit, Min: 0, Max: r.Count - 1})
			continue
		}
		if prev, ok := seen[bit]; ok {
			errs = append(errs, fmt.Errorf("%w: relay %d and relay %d both map to bit %d", ErrDuplicate, prev+1, i+1, bit))
			continue
		}
		seen[bit] = i
	}
	return errs
}

func (p *DeviceProfile) checkInputs() error {
	in := p.Inputs
	if in == nil {
		return nil
	}
	if len(in.Pins) != in.Count {
		return &CountMismatchError{Field: "digital_inputs.pins", Expected: in.Count, Actual: len(in.Pins)}
	}
	return nil
}

func (p *DeviceProfile) checkLED() []error {
	l := p.LED
	if l == nil {
		return nil
	}
	var errs []error
	if l.Count < 1 {
		errs = append(errs, &OutOfRangeError{Field: "status_led.count", Value: l.Count, Min: 1, Max: 1 << 16})
	}
	if l.Brightness < 0 || l.Brightness > maxBrightness {
		errs = append(errs, &OutOfRangeError{Field: "status_led.brightness", Value: l.Brightness, Min: 0, Max: maxBrightness})
	}
	return errs
}

// checkPins verifies every claimed pin exists on the chip and has a single owner.
func (p *DeviceProfile) checkPins() []error {
	claims := p.pinClaims()
	if len(claims) == 0 {
		return nil
	}
	if p.Chip != ChipESP32 && p.Chip != ChipESP32S3 {
		return []error{fmt.Errorf("%w: %q", ErrUnsupportedChip, p.Chip)}
	}
	var errs []error
	for _, c := range claims {
		if !p.Chip.ValidGPIO(c.pin) {
			errs = append(errs, fmt.Errorf("%s: %w", c.role, &OutOfRangeError{Field: "gpio", Value: c.pin, Min: 0, Max: maxGPIO(p.Chip)}))
		}
	}
	for _, a := range p.PinMap() {
		if len(a.Roles) > 1 {
			errs = append(errs, &PinConflictError{Pin: a.Pin, Roles: a.Roles})
		}
	}
	return errs
}

func maxGPIO(c Chip) int {
	if c == ChipESP32 {
		return 39
	}
	return 48
}
