package conv

const hexUpper = "0123456789ABCDEF"

// MAC renders a 6-byte hardware address as AA:BB:CC:DD:EE:FF into buf
// (len >= 17) and returns the used slice.
func MAC(buf []byte, b [6]byte) []byte {
	if len(buf) < 17 {
		return buf[:0]
	}
	j := 0
	for i, x := range b {
		if i > 0 {
			buf[j] = ':'
			j++
		}
		buf[j] = hexUpper[x>>4]
		buf[j+1] = hexUpper[x&0x0F]
		j += 2
	}
	return buf[:j]
}

// MACString is MAC for log fields.
func MACString(b [6]byte) string {
	var buf [17]byte
	return string(MAC(buf[:], b))
}
