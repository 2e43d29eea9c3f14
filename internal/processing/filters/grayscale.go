package filters

import "canny-stream/internal/stream"

// Fixed-point luma weights, scaled by 1<<16.
const (
	lumaWeightB = 9437
	lumaWeightG = 38469
	lumaWeightR = 19595
)

// Luma converts a packed 0xRRGGBB value to 8-bit luma using 16-bit fixed-point
// weights, saturating to [0,255].
func Luma(rgb uint32) uint8 {
	r, g, b := stream.UnpackRGB(rgb)
	y := (lumaWeightB*int(b) + lumaWeightG*int(g) + lumaWeightR*int(r)) >> 16
	return clampByte(y)
}

func clampByte(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
