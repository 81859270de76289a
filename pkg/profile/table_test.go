package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// revisionB is the second wiring found for the Waveshare board name.
func revisionB(t *testing.T) *DeviceProfile {
	p := waveshare(t)
	p.Inputs.Pins = []int{4, 5, 6, 7, 8, 9, 10, 11}
	p.Ethernet.CS = 16
	p.Ethernet.SCK = 15
	p.Ethernet.MISO = 12
	p.Ethernet.MOSI = 13
	p.Ethernet.INT = 17
	p.Ethernet.RST = 18
	return p
}

func TestTable_RejectsConflictingDefinition(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Define(VariantWaveshareESP32S3ETH8DI8RO, waveshare(t)))

	err := table.Define(VariantWaveshareESP32S3ETH8DI8RO, revisionB(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingDefinition)

	var conflict *ConflictingDefinitionError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, VariantWaveshareESP32S3ETH8DI8RO, conflict.Variant)
	assert.Equal(t, []string{
		"digital_inputs.pins",
		"ethernet.cs_pin",
		"ethernet.sck_pin",
		"ethernet.miso_pin",
		"ethernet.mosi_pin",
		"ethernet.int_pin",
		"ethernet.rst_pin",
	}, conflict.Fields)

	// The first definition stays in place.
	p, err := table.Load(VariantWaveshareESP32S3ETH8DI8RO)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 14, 21, 47, 48, 45, 0}, p.Inputs.Pins)
}

func TestTable_IdenticalRedefinitionIsAccepted(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Define(VariantWaveshareESP32S3ETH8DI8RO, waveshare(t)))
	require.NoError(t, table.Define(VariantWaveshareESP32S3ETH8DI8RO, waveshare(t)))
	assert.Equal(t, []Variant{VariantWaveshareESP32S3ETH8DI8RO}, table.Variants())
}

func TestTable_DistinctIdentifiers(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Define(VariantWaveshareESP32S3ETH8DI8RO, waveshare(t)))
	require.NoError(t, table.Define("WAVESHARE_ESP32S3_ETH_8DI_8RO_REV_B", revisionB(t)))
	assert.NoError(t, table.Validate())
}

func TestTable_DefineKeepsCopy(t *testing.T) {
	table := NewTable()
	p := waveshare(t)
	require.NoError(t, table.Define(VariantWaveshareESP32S3ETH8DI8RO, p))
	p.Inputs.Pins[0] = 40

	got, err := table.Load(VariantWaveshareESP32S3ETH8DI8RO)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Inputs.Pins[0])
}

func TestTable_DefineInvalidArgs(t *testing.T) {
	table := NewTable()
	assert.ErrorIs(t, table.Define("", waveshare(t)), ErrUnknownVariant)
	assert.ErrorIs(t, table.Define(VariantDefaultESP32, nil), ErrMissingSection)

	_, err := table.Load(VariantDefaultESP32)
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestBuiltin(t *testing.T) {
	assert.Equal(t, Variants(), Builtin().Variants())
	assert.NoError(t, Builtin().Validate())
}

func TestDiff(t *testing.T) {
	a := waveshare(t)
	b := waveshare(t)
	assert.Empty(t, Diff(a, b))

	b.Features = nil
	a.Features = Features{}
	assert.Empty(t, Diff(a, b))

	b.LED = nil
	b.Relays.Address = 0x21
	assert.Equal(t, []string{"relay_expander.i2c_address", "status_led"}, Diff(a, b))
}

func TestReadTableFile_ConflictingRevisions(t *testing.T) {
	table, err := ReadTableFile(filepath.Join("testdata", "waveshare_revisions.yaml"))
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrConflictingDefinition)
	assert.Contains(t, err.Error(), "entry 1")
	assert.Contains(t, err.Error(), "digital_inputs.pins")
}

func TestReadTableFile_DistinctRevisions(t *testing.T) {
	table, err := ReadTableFile(filepath.Join("testdata", "waveshare_distinct.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []Variant{VariantWaveshareESP32S3ETH8DI8RO, "WAVESHARE_ESP32S3_ETH_8DI_8RO_REV_B"}, table.Variants())

	p, err := table.Load(VariantWaveshareESP32S3ETH8DI8RO)
	require.NoError(t, err)
	assert.Empty(t, Diff(waveshare(t), p))

	rev, err := table.Load("WAVESHARE_ESP32S3_ETH_8DI_8RO_REV_B")
	require.NoError(t, err)
	pin, err := rev.DigitalInputPin(8)
	require.NoError(t, err)
	assert.Equal(t, 11, pin)
}

func TestDecodeTable_InvalidProfile(t *testing.T) {
	doc := `
- variant: DEFAULT_ESP32
  profile:
    device_type: ESP32
    chip: esp32
    status_led: {pin: 2, count: 1, brightness: 300}
`
	_, err := DecodeTable(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecodeTable_UnknownField(t *testing.T) {
	doc := `
- variant: DEFAULT_ESP32
  profile:
    device_type: ESP32
    display: tft
`
	_, err := DecodeTable(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestDecodeTable_Empty(t *testing.T) {
	table, err := DecodeTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Variants())
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waveshare.yaml")
	require.NoError(t, waveshare(t).WriteFile(path))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, Diff(waveshare(t), loaded))
	assert.NoError(t, loaded.Validate())
}

func TestReadFile_Errors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_type: [\n"), 0644))
	_, err = ReadFile(path)
	assert.Error(t, err)
}

func TestTable_FeatureOrderIsNotAConflict(t *testing.T) {
	a := waveshare(t)
	b := waveshare(t)
	b.Features = Features{FeatureWiFiFallback, FeatureRGBLED, FeatureI2CRelay, FeatureEthernet, FeatureDigitalInputs}
	assert.Empty(t, Diff(a, b))

	table := NewTable()
	require.NoError(t, table.Define(VariantWaveshareESP32S3ETH8DI8RO, a))
	require.NoError(t, table.Define(VariantWaveshareESP32S3ETH8DI8RO, b))
	assert.Equal(t, []Variant{VariantWaveshareESP32S3ETH8DI8RO}, table.Variants())

	c := waveshare(t)
	c.Features = NewFeatures(FeatureI2CRelay, FeatureDigitalInputs, FeatureRGBLED, FeatureEthernet)
	err := table.Define(VariantWaveshareESP32S3ETH8DI8RO, c)
	assert.ErrorIs(t, err, ErrConflictingDefinition)
	assert.Contains(t, err.Error(), "feature_flags")
}

func TestDecodeTable_FeaturesAsSet(t *testing.T) {
	doc := `
- variant: LED_BOARD
  profile:
    device_type: ESP32
    chip: esp32
    status_led: {pin: 2, count: 1, brightness: 64}
    feature_flags: [WIFI_FALLBACK, RGB_LED, RGB_LED]
- variant: LED_BOARD
  profile:
    device_type: ESP32
    chip: esp32
    status_led: {pin: 2, count: 1, brightness: 64}
    feature_flags: [RGB_LED, WIFI_FALLBACK]
`
	table, err := DecodeTable(strings.NewReader(doc))
	require.NoError(t, err)

	p, err := table.Load("LED_BOARD")
	require.NoError(t, err)
	assert.Equal(t, Features{FeatureRGBLED, FeatureWiFiFallback}, p.Features)
}

func TestDecodeTable_UnknownFeature(t *testing.T) {
	doc := `
- variant: DEFAULT_ESP32
  profile:
    device_type: ESP32
    feature_flags: [DISPLAY_TFT, BOGUS]
`
	_, err := DecodeTable(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrUnknownFeature)
	assert.Contains(t, err.Error(), "DISPLAY_TFT")
	assert.Contains(t, err.Error(), "BOGUS")
}

func TestReadFile_Strict(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{name: "misspelled key", doc: "device_type: ESP32\ndevise_version: 1.0.0\n"},
		{name: "empty", doc: ""},
		{
			name: "invalid profile",
			doc:  "device_type: ESP32\nchip: esp32\nstatus_led: {pin: 2, count: 1, brightness: 300}\n",
			want: ErrOutOfRange,
		},
		{
			name: "unknown feature",
			doc:  "device_type: ESP32\nfeature_flags: [BOGUS]\n",
			want: ErrUnknownFeature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0644))

			p, err := ReadFile(path)
			assert.Nil(t, p)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
