// Package dram provides the flat, byte-addressable main memory of the
// emulated RV32 machine.
package dram

import (
	"errors"
	"fmt"
)

// DRAM is a window of physical address space starting at a base address.
// Multi-byte values are little-endian. A DRAM is not safe for concurrent use;
// callers that share one must serialize access themselves.
type DRAM struct {
	data []byte
	base uint32
}

func alignUp(x, align uint64) uint64 {
	return (x + align - 1) / align * align
}

// New creates a DRAM covering [base, base+size) with size rounded up to a
// multiple of 4. The image is copied to the start of memory and the rest is
// zero. An image that does not fit, or a window that wraps past the top of
// the 32-bit address space, is reported as a *ConfigError.
func New(image []byte, base, size uint32) (*DRAM, error) {
	length := alignUp(uint64(size), 4)

	if uint64(len(image)) > length {
		return nil, &ConfigError{Base: base, Size: size, ImageSize: len(image), Err: ErrImageTooLarge}
	}
	if uint64(base)+length > 1<<32 {
		return nil, &ConfigError{
			Base: base, Size: size, ImageSize: len(image),
			Err: errors.New("address range wraps past 0xffffffff"),
		}
	}

	d := &DRAM{
		data: make([]byte, length),
		base: base,
	}
	copy(d.data, image)

	return d, nil
}

// MustNew is like New but panics if the memory map is invalid.
func MustNew(image []byte, base, size uint32) *DRAM {
	d, err := New(image, base, size)
	if err != nil {
		panic(err)
	}
	return d
}

// Base returns the address of the first byte.
func (d *DRAM) Base() uint32 {
	return d.base
}

// Size returns the number of addressable bytes. It is always a multiple of 4.
func (d *DRAM) Size() uint32 {
	return uint32(len(d.data))
}

// Contains reports whether addr falls inside the window.
func (d *DRAM) Contains(addr uint32) bool {
	return addr >= d.base && uint64(addr-d.base) < uint64(len(d.data))
}

// translate validates an access of width w at addr and returns the offset
// into data. The address is checked before the width.
func (d *DRAM) translate(op string, addr uint32, w Width) (int, error) {
	if !d.Contains(addr) {
		return 0, &AccessError{Op: op, Kind: OutOfRange, Addr: addr, Width: w}
	}
	if !w.Valid() {
		return 0, &AccessError{Op: op, Kind: UnsupportedWidth, Addr: addr, Width: w}
	}
	return d.span(op, addr, uint64(w.Bytes()), w)
}

// span checks that n bytes starting at addr lie inside the window.
func (d *DRAM) span(op string, addr uint32, n uint64, w Width) (int, error) {
	if !d.Contains(addr) || uint64(addr-d.base)+n > uint64(len(d.data)) {
		return 0, &AccessError{Op: op, Kind: OutOfRange, Addr: addr, Width: w}
	}
	return int(addr - d.base), nil
}

// Load reads a value of width w at addr. The result is zero-extended.
func (d *DRAM) Load(addr uint32, w Width) (uint32, error) {
	offset, err := d.translate("load", addr, w)
	if err != nil {
		return 0, err
	}

	switch w {
	case Byte:
		return uint32(d.data[offset]), nil
	case Half:
		return uint32(d.data[offset]) |
			uint32(d.data[offset+1])<<8, nil
	case Word:
		return uint32(d.data[offset]) |
			uint32(d.data[offset+1])<<8 |
			uint32(d.data[offset+2])<<16 |
			uint32(d.data[offset+3])<<24, nil
	default:
		return 0, &AccessError{Op: "load", Kind: UnsupportedWidth, Addr: addr, Width: w}
	}
}

// Store writes the low w bits of value at addr. A rejected store leaves
// memory untouched.
func (d *DRAM) Store(addr uint32, value uint32, w Width) error {
	offset, err := d.translate("store", addr, w)
	if err != nil {
		return err
	}

	switch w {
	case Byte:
		d.data[offset] = byte(value)
	case Half:
		d.data[offset] = byte(value)
		d.data[offset+1] = byte(value >> 8)
	case Word:
		d.data[offset] = byte(value)
		d.data[offset+1] = byte(value >> 8)
		d.data[offset+2] = byte(value >> 16)
		d.data[offset+3] = byte(value >> 24)
	default:
		return &AccessError{Op: "store", Kind: UnsupportedWidth, Addr: addr, Width: w}
	}

	return nil
}

// ReadBytes copies n bytes starting at addr.
func (d *DRAM) ReadBytes(addr uint32, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("dram: negative read length %d", n)
	}
	offset, err := d.span("read", addr, uint64(n), Byte)
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, d.data[offset:offset+n])
	return out, nil
}

// WriteBytes copies data into memory starting at addr. Nothing is written
// unless the whole range is inside the window.
func (d *DRAM) WriteBytes(addr uint32, data []byte) error {
	offset, err := d.span("write", addr, uint64(len(data)), Byte)
	if err != nil {
		return err
	}

	copy(d.data[offset:], data)
	return nil
}
