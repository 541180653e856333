package stream

import (
	"errors"
	"sync"

	"token-settlement-gateway/internal/core/domain"
)

var (
	// ErrObserverClosed is returned when delivering to a closed sink.
	ErrObserverClosed = errors.New("observer closed")
	// ErrObserverBusy is returned when the observer's buffer is full. The
	// event is dropped for this observer only.
	ErrObserverBusy = errors.New("observer buffer full")
)

// ChannelObserver is a channel-backed delivery sink. Deliver never blocks:
// events queue into a bounded buffer, and a consumer too slow to drain it
// loses deliveries instead of stalling the broadcast path.
type ChannelObserver struct {
	ch        chan domain.Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewChannelObserver creates a sink with the given buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelObserver{
		ch:   make(chan domain.Event, buffer),
		done: make(chan struct{}),
	}
}

// Deliver implements Observer.
func (o *ChannelObserver) Deliver(event domain.Event) error {
	select {
	case <-o.done:
		return ErrObserverClosed
	default:
	}
	select {
	case o.ch <- event:
		return nil
	case <-o.done:
		return ErrObserverClosed
	default:
		return ErrObserverBusy
	}
}

// Events exposes the delivery channel to the transport layer.
func (o *ChannelObserver) Events() <-chan domain.Event {
	return o.ch
}

// Close marks the sink closed. Safe to call more than once.
func (o *ChannelObserver) Close() {
	o.closeOnce.Do(func() { close(o.done) })
}
