package mathx

// ScaleU8 scales a colour component by brightness/255 with integer maths.
// Inputs above 255 are clamped first, so callers may pass raw sums.
func ScaleU8(v uint16, brightness uint8) uint8 {
	c := uint32(Clamp(v, 0, 255))
	return uint8(c * uint32(brightness) / 255)
}
