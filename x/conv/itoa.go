package conv

// Itoa writes base-10 representation of n into the tail of buf and returns
// the used slice. 20 bytes hold any int64. No allocations; no strconv.
func Itoa(buf []byte, n int64) []byte {
	i := len(buf)
	if i == 0 {
		return buf[:0]
	}
	u := uint64(n)
	if n < 0 {
		u = uint64(-n)
	}
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 || i == 0 {
			break
		}
	}
	if n < 0 && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}
