package bytevalues

// deposit scatters the low bits of v into the set bits of mask, lowest
// first. For a contiguous mask this is (v << shift) & mask.
func deposit(v int, mask uint8) uint8 {
	var out uint8
	for bit := uint8(1); bit != 0; bit <<= 1 {
		if mask&bit == 0 {
			continue
		}
		if v&1 != 0 {
			out |= bit
		}
		v >>= 1
	}
	return out
}

// extract gathers the bits of b selected by mask into the low bits of the
// result. It is the inverse of deposit.
func extract(b, mask uint8) int {
	var out, pos int
	for bit := uint8(1); bit != 0; bit <<= 1 {
		if mask&bit == 0 {
			continue
		}
		if b&bit != 0 {
			out |= 1 << pos
		}
		pos++
	}
	return out
}
