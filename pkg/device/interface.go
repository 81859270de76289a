package device

// Device defines the interface for bitcoinSwitch boards reached over a line
// oriented console (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Lines() <-chan string
	Send(command string) error
	HardwareReset() error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
