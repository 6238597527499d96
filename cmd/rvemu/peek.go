package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KINGFIOX/rvemu-hitsz/dram"
)

// peekRequest is one addr[:bits] entry of the -peek flag.
type peekRequest struct {
	addr  uint32
	width dram.Width
}

// parsePeeks parses "0x80000000,0x80000004:8". Entries without a width
// read a word.
func parsePeeks(s string) ([]peekRequest, error) {
	var requests []peekRequest

	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		addrPart, bitsPart, hasBits := strings.Cut(field, ":")
		addr, err := parseUint32(addrPart)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", addrPart, err)
		}

		width := dram.Word
		if hasBits {
			bits, err := strconv.ParseUint(bitsPart, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("width %q: %w", bitsPart, err)
			}
			width, err = dram.WidthFromBits(uint32(bits))
			if err != nil {
				return nil, err
			}
		}

		requests = append(requests, peekRequest{addr: addr, width: width})
	}

	return requests, nil
}

// parseUint32 accepts decimal, 0x-prefixed hex and 0o/0b forms.
func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
