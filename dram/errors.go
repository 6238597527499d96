package dram

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is matched by errors.Is for accesses outside the window.
	ErrOutOfRange = errors.New("address out of range")

	// ErrUnsupportedWidth is matched by errors.Is for widths other than
	// 8, 16 and 32.
	ErrUnsupportedWidth = errors.New("unsupported width")

	// ErrImageTooLarge is returned by New when the initial image does not
	// fit into the requested size.
	ErrImageTooLarge = errors.New("image larger than memory")
)

// ErrorKind classifies an AccessError.
type ErrorKind int

const (
	// OutOfRange means the address lies outside [base, base+size).
	OutOfRange ErrorKind = iota
	// UnsupportedWidth means the width is not Byte, Half or Word.
	UnsupportedWidth
)

func (k ErrorKind) String() string {
	switch k {
	case OutOfRange:
		return "out of range"
	case UnsupportedWidth:
		return "unsupported width"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// AccessError describes a rejected load or store.
type AccessError struct {
	Op    string
	Kind  ErrorKind
	Addr  uint32
	Width Width
}

func (e *AccessError) Error() string {
	if e.Kind == UnsupportedWidth {
		return fmt.Sprintf("dram: %s 0x%08x: unsupported width %d", e.Op, e.Addr, uint32(e.Width))
	}
	return fmt.Sprintf("dram: %s 0x%08x: address out of range", e.Op, e.Addr)
}

// Is lets errors.Is match an AccessError against ErrOutOfRange and
// ErrUnsupportedWidth.
func (e *AccessError) Is(target error) bool {
	switch target {
	case ErrOutOfRange:
		return e.Kind == OutOfRange
	case ErrUnsupportedWidth:
		return e.Kind == UnsupportedWidth
	}
	return false
}

// ConfigError reports a memory map that cannot be constructed.
type ConfigError struct {
	Base      uint32
	Size      uint32
	ImageSize int
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dram: invalid memory map (base 0x%08x, size 0x%x, image %d bytes): %v",
		e.Base, e.Size, e.ImageSize, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
