package vkres

import (
	"time"

	"golang.org/x/exp/slog"
)

const (
	// DefaultAcquireTimeout bounds the wait for the next presentable image.
	DefaultAcquireTimeout = 100000 * time.Nanosecond

	// DefaultTransferTimeout bounds the wait on blocking submits, including every
	// staging transfer.
	DefaultTransferTimeout = 10 * time.Second
)

// Options configures a Context. Zero fields take their defaults.
type Options struct {
	// AcquireTimeout is passed to the swapchain acquire call.
	AcquireTimeout time.Duration

	// TransferTimeout is how long a blocking submit waits on its fence.
	TransferTimeout time.Duration

	// Logger receives resource lifecycle events, slog.Default() when nil.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		AcquireTimeout:  DefaultAcquireTimeout,
		TransferTimeout: DefaultTransferTimeout,
		Logger:          slog.Default(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = d.AcquireTimeout
	}
	if o.TransferTimeout <= 0 {
		o.TransferTimeout = d.TransferTimeout
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}
