package dram

// Width is the size of a single memory access.
type Width uint32

const (
	// Byte is an 8-bit access.
	Byte Width = 8
	// Half is a 16-bit access.
	Half Width = 16
	// Word is a 32-bit access.
	Word Width = 32
)

// WidthFromBits converts a raw access size in bits, such as one decoded from
// an instruction field, into a Width.
func WidthFromBits(bits uint32) (Width, error) {
	w := Width(bits)
	if !w.Valid() {
		return 0, &AccessError{Op: "decode", Kind: UnsupportedWidth, Width: w}
	}
	return w, nil
}

// Valid reports whether w is one of Byte, Half or Word.
func (w Width) Valid() bool {
	switch w {
	case Byte, Half, Word:
		return true
	}
	return false
}

// Bytes returns the number of bytes covered by an access of width w.
func (w Width) Bytes() uint32 {
	return uint32(w) / 8
}

// Mask returns the bits of a uint32 that an access of width w carries.
func (w Width) Mask() uint32 {
	if w >= Word {
		return 0xFFFFFFFF
	}
	return uint32(1)<<w - 1
}
