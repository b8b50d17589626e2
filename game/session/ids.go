package session

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync/atomic"
)

// IDAllocator hands out candidate game identifiers. The manager retries on
// collision, so allocators need not guarantee uniqueness.
type IDAllocator interface {
	Next() string
}

// SequentialAllocator yields "0", "1", "2", ...
type SequentialAllocator struct {
	next atomic.Int64
}

// NewSequentialAllocator creates an allocator starting at zero
func NewSequentialAllocator() *SequentialAllocator {
	return &SequentialAllocator{}
}

func (a *SequentialAllocator) Next() string {
	return strconv.FormatInt(a.next.Add(1)-1, 10)
}

// HexAllocator yields random 4-character hex identifiers
type HexAllocator struct{}

func (HexAllocator) Next() string {
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// NewAllocator returns the allocator for style: "hex" or anything else for sequential
func NewAllocator(style string) IDAllocator {
	if style == "hex" {
		return HexAllocator{}
	}
	return NewSequentialAllocator()
}
