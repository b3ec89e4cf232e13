// Package buffer provides the fixed-capacity byte region that exports are
// committed into before they are handed to storage.
package buffer

import (
	"errors"
	"fmt"
)

var (
	ErrNegativeSize     = errors.New("buffer: negative size")
	ErrCapacityExceeded = errors.New("buffer: capacity exceeded")
)

// Resizer is the view of a buffer that encoders commit into.
type Resizer interface {
	// Resize sets the capacity to exactly n bytes. A failed resize must leave
	// the previous capacity and contents intact.
	Resize(n int) error
	// Data returns read/write access to exactly the current capacity.
	Data() []byte
}

// Allocator returns zeroed storage for n bytes.
type Allocator func(n int) ([]byte, error)

// Option configures a Buffer.
type Option func(*Buffer)

// WithMaxCapacity rejects resizes above max bytes. Zero means unlimited.
func WithMaxCapacity(max int) Option {
	return func(b *Buffer) {
		b.max = max
	}
}

// WithAllocator replaces the default make-based allocation.
func WithAllocator(alloc Allocator) Option {
	return func(b *Buffer) {
		b.alloc = alloc
	}
}

// Buffer owns a contiguous byte region. It is not safe for concurrent use.
type Buffer struct {
	data  []byte
	max   int
	alloc Allocator
}

var _ Resizer = (*Buffer)(nil)

// New creates a buffer with the given initial capacity.
func New(size int, opts ...Option) (*Buffer, error) {
	b := &Buffer{}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.Resize(size); err != nil {
		return nil, err
	}
	return b, nil
}

// Resize grows or shrinks the buffer to exactly n bytes. Bytes that survive
// the resize keep their value; new bytes are zero.
func (b *Buffer) Resize(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeSize, n)
	}
	if b.max > 0 && n > b.max {
		return fmt.Errorf("%w: requested %d, max %d", ErrCapacityExceeded, n, b.max)
	}
	if n == len(b.data) {
		return nil
	}

	var next []byte
	if b.alloc != nil {
		p, err := b.alloc(n)
		if err != nil {
			return fmt.Errorf("buffer: allocate %d bytes: %w", n, err)
		}
		if len(p) != n {
			return fmt.Errorf("buffer: allocator returned %d bytes, want %d", len(p), n)
		}
		next = p
	} else {
		next = make([]byte, n)
	}
	copy(next, b.data)
	b.data = next
	return nil
}

// Data returns the buffer contents. The slice is valid until the next Resize.
func (b *Buffer) Data() []byte {
	return b.data
}

// Len returns the current capacity.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes returns a copy of the contents.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// String returns the contents as text.
func (b *Buffer) String() string {
	return string(b.data)
}
