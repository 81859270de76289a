package device

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/itohio/bitswitch/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastTiming() config.ProvisionConfig {
	return config.ProvisionConfig{
		SettleDelay:  time.Millisecond,
		DetectWindow: 20 * time.Millisecond,
		ResetWindow:  20 * time.Millisecond,
		BootWait:     time.Millisecond,
		CommandDelay: time.Millisecond,
		VerifyWindow: 20 * time.Millisecond,
		RetryWait:    time.Millisecond,
	}
}

func newTestProvisioner(t *testing.T, cfg MockConfig) (*Provisioner, *Mock) {
	t.Helper()
	dev := NewMock(cfg)
	require.NoError(t, dev.Connect())
	t.Cleanup(func() { dev.Close() })
	return NewProvisioner(dev, fastTiming(), log.New(io.Discard, "", 0)), dev
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.SSID = "shop"
	s.Password = "p&ss<word>"
	s.DeviceString = "wss://lnbits.example.com/bitcoinswitch/api/v1/ws/abc123"
	return s
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  MockConfig
		want Mode
	}{
		{name: "config mode", cfg: MockConfig{ConfigMode: true}, want: ModeConfig},
		{name: "running", cfg: MockConfig{}, want: ModeRunning},
		{name: "silent", cfg: MockConfig{Silent: true}, want: ModeSilent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, dev := newTestProvisioner(t, tt.cfg)
			report, err := p.DetectMode(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Mode)
			assert.NotEmpty(t, report.Message)
			assert.Equal(t, []string{"/file-list"}, dev.Commands())
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		lines []string
		want  Mode
	}{
		{nil, ModeSilent},
		{[]string{"=== CONFIG MODE ==="}, ModeConfig},
		{[]string{"Available commands:", "  /file-list"}, ModeConfig},
		{[]string{"Ethernet link up", "IP 10.0.0.7"}, ModeRunning},
		{[]string{"Network: DHCP lease acquired"}, ModeRunning},
		{[]string{"ets Jun  8 2016 00:22:57", "rst:0x1 (POWERON_RESET)"}, ModeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.lines).Mode, "%v", tt.lines)
	}
}

func TestReset_Software(t *testing.T) {
	p, dev := newTestProvisioner(t, MockConfig{ResetToConfig: true})

	method, err := p.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResetSoftware, method)

	sw, hw := dev.Resets()
	assert.Equal(t, 1, sw)
	assert.Equal(t, 0, hw)
	assert.True(t, dev.ConfigMode())

	report, err := p.DetectMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeConfig, report.Mode)
}

func TestReset_HardwareFallback(t *testing.T) {
	p, dev := newTestProvisioner(t, MockConfig{IgnoreReset: true, ResetToConfig: true})

	method, err := p.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResetHardware, method)

	sw, hw := dev.Resets()
	assert.Equal(t, 0, sw)
	assert.Equal(t, 1, hw)
	assert.True(t, dev.ConfigMode())
}

func TestWrite(t *testing.T) {
	p, dev := newTestProvisioner(t, MockConfig{ConfigMode: true})
	elements := testSettings().Elements()

	report, err := p.Write(context.Background(), elements)
	require.NoError(t, err)
	require.NoError(t, report.VerifyErr)
	assert.Equal(t, len(elements), report.Written)
	assert.Equal(t, len(elements), report.Verified)
	assert.True(t, dev.Done())
	assert.False(t, dev.ConfigMode())

	var stored []config.Element
	require.NoError(t, json.Unmarshal([]byte(dev.File()), &stored))
	assert.Equal(t, elements, stored)

	cmds := dev.Commands()
	require.Len(t, cmds, 1+1+len(elements)+1+1+1)
	assert.Equal(t, "/file-remove", cmds[0])
	assert.Equal(t, "/file-append [", cmds[1])
	assert.Equal(t, `/file-append {"name":"config_ssid","value":"shop"},`, cmds[2])
	assert.Equal(t, `/file-append {"name":"config_password","value":"p&ss<word>"},`, cmds[3])
	assert.Equal(t, `/file-append {"name":"syslog_port","value":"514"}`, cmds[len(elements)+1])
	assert.Equal(t, "/file-append ]", cmds[len(elements)+2])
	assert.Equal(t, "/file-read /elements.json", cmds[len(elements)+3])
	assert.Equal(t, "/config-done", cmds[len(elements)+4])
}

func TestWrite_ReplacesOldFile(t *testing.T) {
	p, dev := newTestProvisioner(t, MockConfig{ConfigMode: true})
	require.NoError(t, dev.Send("/file-append garbage"))

	_, err := p.Write(context.Background(), testSettings().Elements()[:2])
	require.NoError(t, err)
	assert.False(t, strings.Contains(dev.File(), "garbage"))
}

func TestWrite_SilentDevice(t *testing.T) {
	p, dev := newTestProvisioner(t, MockConfig{ConfigMode: true, Silent: true})

	report, err := p.Write(context.Background(), testSettings().Elements())
	require.NoError(t, err)
	assert.ErrorIs(t, report.VerifyErr, ErrNoResponse)
	assert.Zero(t, report.Verified)
	assert.False(t, dev.Done())
}

func TestWrite_Cancelled(t *testing.T) {
	p, _ := newTestProvisioner(t, MockConfig{ConfigMode: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Write(ctx, testSettings().Elements())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrite_NotConnected(t *testing.T) {
	dev := NewMock(MockConfig{ConfigMode: true})
	p := NewProvisioner(dev, fastTiming(), log.New(io.Discard, "", 0))

	_, err := p.Write(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		want     int
		wantErr  bool
		sentinel error
	}{
		{
			name:  "complete",
			lines: []string{"/file-send [", `/file-send {"name":"a","value":"1"},`, `/file-send {"name":"b","value":"2"}`, "/file-send ]"},
			want:  2,
		},
		{
			name:  "noise around content",
			lines: []string{"reading /elements.json", `/file-send [{"name":"a","value":"1"},{"name":"b","value":"2"}]`, "done"},
			want:  2,
		},
		{
			name:     "no lines",
			wantErr:  true,
			sentinel: ErrNoResponse,
		},
		{
			name:     "no file content",
			lines:    []string{"file not found"},
			wantErr:  true,
			sentinel: ErrNoResponse,
		},
		{
			name:    "truncated",
			lines:   []string{"/file-send [", `/file-send {"name":"a","value":"1"},`},
			wantErr: true,
		},
		{
			name:    "count differs",
			lines:   []string{`/file-send [{"name":"a","value":"1"}]`},
			want:    1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := verify(tt.lines, 2)
			assert.Equal(t, tt.want, got)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.sentinel != nil {
				assert.True(t, errors.Is(err, tt.sentinel))
			}
		})
	}
}

func TestEncodeElement(t *testing.T) {
	got, err := encodeElement(config.Element{Name: "config_device_string", Value: "wss://h/ws?a=1&b=2"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"config_device_string","value":"wss://h/ws?a=1&b=2"}`, got)
}

func TestCollect_Closed(t *testing.T) {
	p, dev := newTestProvisioner(t, MockConfig{ConfigMode: true})
	require.NoError(t, dev.Close())

	_, err := p.DetectMode(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = p.collect(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestModeStrings(t *testing.T) {
	assert.Equal(t, "config", ModeConfig.String())
	assert.Equal(t, "running", ModeRunning.String())
	assert.Equal(t, "silent", ModeSilent.String())
	assert.Equal(t, "unknown", ModeUnknown.String())
	assert.Equal(t, "software", ResetSoftware.String())
	assert.Equal(t, "hardware", ResetHardware.String())
	assert.Equal(t, "none", ResetNone.String())
}
