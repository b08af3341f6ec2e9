package otp

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultTestCode is the code a MemoryChannel accepts unless configured
// otherwise.
const DefaultTestCode = "123456"

// MemoryChannel is an in-process Channel for tests and local development
// when no verification provider is configured. It never sends anything; it
// accepts a single fixed code.
type MemoryChannel struct {
	Code string

	mu      sync.Mutex
	pending map[string]string
}

var _ Channel = (*MemoryChannel)(nil)

// NewMemoryChannel returns a channel that accepts DefaultTestCode.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{Code: DefaultTestCode, pending: make(map[string]string)}
}

func (c *MemoryChannel) Send(_ context.Context, phone string) (string, error) {
	handle := uuid.NewString()
	c.mu.Lock()
	c.pending[handle] = phone
	c.mu.Unlock()
	return handle, nil
}

func (c *MemoryChannel) Confirm(_ context.Context, handle, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[handle]; !ok {
		return ErrInvalidCode
	}
	if code != c.Code {
		return ErrInvalidCode
	}
	delete(c.pending, handle)
	return nil
}

// Phone reports the phone a handle was issued for, for assertions in tests.
func (c *MemoryChannel) Phone(handle string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	phone, ok := c.pending[handle]
	return phone, ok
}
