// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package image

import (
	"encoding/binary"
	"math"
)

// No example in the retrieved pack implements network-facing binary
// framing inside the chosen teacher (gviegas-neo3 has no wire codec:
// it moves pixels through GPU memory, never across a socket), so the
// header (de)serialization below uses the standard library's
// encoding/binary directly rather than inventing a bespoke bit-packer
// or importing an unexercised third-party codec.

const (
	denseMagic  uint32 = 0x6963494d // "icIM"
	sparseMagic uint32 = 0x69635350 // "icSP"

	// denseHeaderSize is the byte size of the Image descriptor:
	// magic, color fmt, depth fmt, 2 reserved bytes, width, height,
	// total buffer size.
	denseHeaderSize = 4 + 1 + 1 + 2 + 4 + 4 + 4

	// sparseHeaderSize additionally carries the active-pixel count.
	sparseHeaderSize = denseHeaderSize + 4

	// runHeaderSize is the byte size of one run's [inactive, active]
	// count pair.
	runHeaderSize = 4 + 4
)

func putFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// header is the common descriptor prefix of both Image and
// SparseImage buffers.
type header struct {
	magic  uint32
	color  ColorFmt
	depth  DepthFmt
	width  uint32
	height uint32
	size   uint32 // total buffer size in bytes, including the header
}

func (h header) format() Format { return Format{Color: h.color, Depth: h.depth} }

func putHeader(b []byte, h header) {
	binary.LittleEndian.PutUint32(b[0:4], h.magic)
	b[4] = byte(h.color)
	b[5] = byte(h.depth)
	b[6], b[7] = 0, 0
	binary.LittleEndian.PutUint32(b[8:12], h.width)
	binary.LittleEndian.PutUint32(b[12:16], h.height)
	binary.LittleEndian.PutUint32(b[16:20], h.size)
}

func getHeader(b []byte) header {
	return header{
		magic:  binary.LittleEndian.Uint32(b[0:4]),
		color:  ColorFmt(b[4]),
		depth:  DepthFmt(b[5]),
		width:  binary.LittleEndian.Uint32(b[8:12]),
		height: binary.LittleEndian.Uint32(b[12:16]),
		size:   binary.LittleEndian.Uint32(b[16:20]),
	}
}

func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func getUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }
