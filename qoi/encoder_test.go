package qoi

import "encoding/binary"

func header(width, height uint32, channels uint8, colorspace Colorspace) []byte {
	b := make([]byte, 0, HeaderSize)
	b = append(b, Magic...)
	b = binary.BigEndian.AppendUint32(b, width)
	b = binary.BigEndian.AppendUint32(b, height)
	return append(b, channels, byte(colorspace))
}

// encode is a straightforward encoder used to check that decoding reverses
// it exactly
func encode(pixels []Pixel, width, height uint32, channels uint8) []byte {
	b := header(width, height, channels, SRGB)

	var c cache
	prev := Pixel{A: 0xff}
	run := 0

	for i, px := range pixels {
		if px == prev {
			run++
			if run == 62 || i == len(pixels)-1 {
				b = append(b, OpRun|byte(run-1))
				run = 0
			}
			continue
		}

		if run > 0 {
			b = append(b, OpRun|byte(run-1))
			run = 0
		}

		h := px.hash()
		switch {
		case c[h] == px:
			b = append(b, OpIndex|byte(h))
		case px.A == prev.A:
			c[h] = px

			dr := int(int8(px.R - prev.R))
			dg := int(int8(px.G - prev.G))
			db := int(int8(px.B - prev.B))
			drdg := dr - dg
			dbdg := db - dg

			switch {
			case dr >= -2 && dr <= 1 && dg >= -2 && dg <= 1 && db >= -2 && db <= 1:
				b = append(b, OpDiff|byte(dr+2)<<4|byte(dg+2)<<2|byte(db+2))
			case dg >= -32 && dg <= 31 && drdg >= -8 && drdg <= 7 && dbdg >= -8 && dbdg <= 7:
				b = append(b, OpLuma|byte(dg+32), byte(drdg+8)<<4|byte(dbdg+8))
			default:
				b = append(b, OpRGB, px.R, px.G, px.B)
			}
		default:
			c[h] = px
			b = append(b, OpRGBA, px.R, px.G, px.B, px.A)
		}

		prev = px
	}

	return append(b, EndMarker[:]...)
}
