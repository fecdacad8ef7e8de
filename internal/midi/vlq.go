package midi

// MaxVarLen is the largest value a MIDI variable-length quantity can
// hold (four 7-bit groups).
const MaxVarLen = 0x0FFFFFFF

// appendVarLen appends the canonical (minimal-byte) variable-length
// encoding of v. Values above MaxVarLen are truncated to it. Zero
// encodes as a single zero byte.
func appendVarLen(dst []byte, v uint32) []byte {
	if v > MaxVarLen {
		v = MaxVarLen
	}
	var tmp [4]byte
	n := 0
	for {
		tmp[n] = byte(v & 0x7F)
		v >>= 7
		n++
		if v == 0 {
			break
		}
	}
	// groups come out little-endian first; emit them reversed with the
	// continuation bit on all but the final byte
	for i := n - 1; i > 0; i-- {
		dst = append(dst, tmp[i]|0x80)
	}
	return append(dst, tmp[0])
}

// readVarLen decodes a variable-length quantity at data[pos]. At most
// four groups are consumed. Returns the value and the new cursor, or
// a truncation error if the quantity runs past the slice.
func readVarLen(data []byte, pos int) (uint32, int, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		if pos >= len(data) {
			return 0, pos, &TruncatedError{What: "variable-length quantity"}
		}
		b := data[pos]
		pos++
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, pos, nil
		}
	}
	return v, pos, nil
}
