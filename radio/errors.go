package radio

import "github.com/pkg/errors"

var (
	// ErrBusSetup is returned when the receiver cannot be reached on the bus
	// while starting the driver.
	ErrBusSetup = errors.New("si4703: bus setup failed")

	// ErrTransport is returned when a register block read or write did not complete.
	ErrTransport = errors.New("si4703: transport failure")

	// ErrTimeout is returned when the chip did not report seek/tune completion in time.
	ErrTimeout = errors.New("si4703: timed out waiting for the chip")

	// ErrNotInitialized is returned by operations invoked before Start succeeded.
	ErrNotInitialized = errors.New("si4703: driver not initialized")

	// ErrInvalidFrequency is returned when tuning outside of the configured band.
	ErrInvalidFrequency = errors.New("si4703: frequency outside of band")

	// ErrInvalidDirection is returned for a seek direction other than SeekUp or SeekDown.
	ErrInvalidDirection = errors.New("si4703: invalid seek direction")
)
