package histogram

import "math"

// hueSat converts an 8-bit RGB pixel to the byte encoding of HSV used by
// video tooling: hue in [0, 180) as degrees/2 and saturation in [0, 255].
func hueSat(r, g, b uint8) (hue, sat float64) {
	ri, gi, bi := int(r), int(g), int(b)
	v := max(ri, gi, bi)
	diff := v - min(ri, gi, bi)

	if v > 0 {
		sat = math.Floor(float64(diff)*255/float64(v) + 0.5)
	}
	if diff == 0 {
		return 0, sat
	}

	var num int
	switch v {
	case ri:
		num = gi - bi
	case gi:
		num = bi - ri + 2*diff
	default:
		num = ri - gi + 4*diff
	}

	hue = math.Floor(float64(num)*30/float64(diff) + 0.5)
	if hue < 0 {
		hue += 180
	}
	return hue, sat
}
