// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package image

import (
	"github.com/gviegas/compose/icerr"
)

// SparseBufferSize returns an upper bound on the size, in bytes, of a
// SparseImage buffer for the given dimensions and formats (spec §4.1
// sparse_image_buffer_size). The bound is conservative: it assumes
// the worst case of every pixel forming its own single-pixel run,
// plus a trailing zero-active sentinel, so a caller that sizes a
// buffer with this function is never at risk of silent truncation.
func SparseBufferSize(w, h int, f Format) int {
	n := w * h
	return sparseHeaderSize + n*(runHeaderSize+f.BytesPerPixel()) + runHeaderSize
}

// SparseImage is a run-length encoded pixel buffer. Runs alternate an
// inactive (background) pixel count with an active pixel count;
// active pixels carry their color and/or depth payload, interleaved
// per pixel, in run order. A run with a zero active count may close
// out the stream when it ends on a run of inactive pixels (spec §4.1).
type SparseImage struct {
	buf []byte
}

func (s *SparseImage) header() header { return getHeader(s.buf) }

// Format returns the image's color and depth formats.
func (s *SparseImage) Format() Format { return s.header().format() }

// Width returns the image's width in pixels.
func (s *SparseImage) Width() int { return int(s.header().width) }

// Height returns the image's height in pixels.
func (s *SparseImage) Height() int { return int(s.header().height) }

// NumPixels returns Width*Height.
func (s *SparseImage) NumPixels() int { return s.Width() * s.Height() }

// NumActive returns the number of active (non-background) pixels.
func (s *SparseImage) NumActive() int { return int(getUint32(s.buf[denseHeaderSize:])) }

func (s *SparseImage) runs() []byte { return s.buf[sparseHeaderSize:] }

// CompressImage encodes src's pixels as a new SparseImage, written
// into dstBuf, relative to bg (spec §4.1 compress_image). dstBuf must
// be at least SparseBufferSize(src.Width(), src.Height(), src.Format())
// bytes.
func CompressImage(src *Image, bg Background, dstBuf []byte) (*SparseImage, error) {
	return compressRange(src, 0, src.NumPixels(), src.Width(), src.Height(), bg, dstBuf)
}

// CompressSubImage encodes the pixel range [start, start+length) of
// src as a new SparseImage, as if it were a 1-row image of width
// length, written into dstBuf relative to bg (spec §4.1
// compress_sub_image).
func CompressSubImage(src *Image, start, length int, bg Background, dstBuf []byte) (*SparseImage, error) {
	if start < 0 || length < 0 || start+length > src.NumPixels() {
		return nil, icerr.New(icerr.InvalidValue, "image.CompressSubImage", "pixel range out of bounds")
	}
	return compressRange(src, start, length, length, 1, bg, dstBuf)
}

// compressRange scans pixels [start, start+length) of src, building
// maximal alternating inactive/active runs, and stamps the output
// descriptor with dimensions outW x outH.
func compressRange(src *Image, start, length, outW, outH int, bg Background, dstBuf []byte) (*SparseImage, error) {
	f := src.Format()
	need := SparseBufferSize(outW, outH, f)
	if len(dstBuf) < need {
		return nil, icerr.New(icerr.SanityCheckFail, "image.compressRange", "destination buffer too small")
	}
	off := sparseHeaderSize
	active := 0
	i := 0
	for i < length {
		inactiveStart := i
		for i < length && !isActive(src, start+i, bg) {
			i++
		}
		inactiveCount := i - inactiveStart
		activeStart := i
		for i < length && isActive(src, start+i, bg) {
			i++
		}
		activeCount := i - activeStart

		putUint32(dstBuf[off:], uint32(inactiveCount))
		putUint32(dstBuf[off+4:], uint32(activeCount))
		off += runHeaderSize
		for p := 0; p < activeCount; p++ {
			off += packPixel(src, start+activeStart+p, dstBuf[off:])
		}
		active += activeCount
	}
	putHeader(dstBuf, header{magic: sparseMagic, color: f.Color, depth: f.Depth, width: uint32(outW), height: uint32(outH), size: uint32(off)})
	putUint32(dstBuf[denseHeaderSize:], uint32(active))
	return &SparseImage{buf: dstBuf[:off]}, nil
}

// CopyPixels extracts the pixel range [start, start+length) of src
// directly from its run-length encoding, without decompressing,
// producing a byte-identical result to compressing the same range of
// the underlying dense image (spec §4.1 sparse_image_copy_pixels).
func CopyPixels(src *SparseImage, start, length int, dstBuf []byte) (*SparseImage, error) {
	h := src.header()
	if h.magic != sparseMagic {
		return nil, icerr.New(icerr.SanityCheckFail, "image.CopyPixels", "source is not a sparse image")
	}
	total := int(h.width) * int(h.height)
	if start < 0 || length < 0 || start+length > total {
		return nil, icerr.New(icerr.InvalidValue, "image.CopyPixels", "pixel range out of bounds")
	}
	f := h.format()
	bpp := f.BytesPerPixel()
	need := SparseBufferSize(length, 1, f)
	if len(dstBuf) < need {
		return nil, icerr.New(icerr.SanityCheckFail, "image.CopyPixels", "destination buffer too small")
	}
	end := start + length

	srcRuns := src.runs()
	off, pos := 0, 0
	dstOff := sparseHeaderSize
	active := 0

	for off < len(srcRuns) {
		inact := int(getUint32(srcRuns[off:]))
		act := int(getUint32(srcRuns[off+4:]))
		runStart := pos
		runInactiveEnd := runStart + inact
		runEnd := runInactiveEnd + act
		payload := srcRuns[off+runHeaderSize : off+runHeaderSize+act*bpp]
		off += runHeaderSize + act*bpp
		pos = runEnd

		if runEnd <= start {
			continue
		}
		if runStart >= end || start == end {
			break
		}

		outInact := 0
		if lo, hi := max(runStart, start), min(runInactiveEnd, end); hi > lo {
			outInact = hi - lo
		}
		outAct := 0
		var slice []byte
		if lo, hi := max(runInactiveEnd, start), min(runEnd, end); hi > lo {
			outAct = hi - lo
			skip := lo - runInactiveEnd
			slice = payload[skip*bpp : (skip+outAct)*bpp]
		}

		putUint32(dstBuf[dstOff:], uint32(outInact))
		putUint32(dstBuf[dstOff+4:], uint32(outAct))
		dstOff += runHeaderSize
		dstOff += copy(dstBuf[dstOff:], slice)
		active += outAct
	}

	putHeader(dstBuf, header{magic: sparseMagic, color: f.Color, depth: f.Depth, width: uint32(length), height: 1, size: uint32(dstOff)})
	putUint32(dstBuf[denseHeaderSize:], uint32(active))
	return &SparseImage{buf: dstBuf[:dstOff]}, nil
}

// PackageForSend returns the raw bytes of s, suitable for handing to
// a Communicator send (spec §4.1 sparse_image_package_for_send). The
// returned slice aliases s's backing buffer.
func PackageForSend(s *SparseImage) []byte { return s.buf }

// Unpackage interprets a byte slice received from a Communicator as a
// SparseImage (spec §4.1 sparse_image_unpackage).
func Unpackage(buf []byte) (*SparseImage, error) {
	if len(buf) < sparseHeaderSize {
		return nil, icerr.New(icerr.InvalidValue, "image.Unpackage", "buffer shorter than sparse header")
	}
	h := getHeader(buf)
	if h.magic != sparseMagic {
		return nil, icerr.New(icerr.SanityCheckFail, "image.Unpackage", "bad sparse image magic")
	}
	if uint32(len(buf)) < h.size {
		return nil, icerr.New(icerr.SanityCheckFail, "image.Unpackage", "buffer shorter than declared size")
	}
	return &SparseImage{buf: buf[:h.size]}, nil
}

// DecompressImage expands src into dst, which must already be
// assigned with matching dimensions and formats. Inactive pixels are
// normalized to bg's packed color and FarDepth (spec §4.1
// decompress_image).
func DecompressImage(src *SparseImage, dst *Image, bg Background) error {
	h := src.header()
	if h.magic != sparseMagic {
		return icerr.New(icerr.SanityCheckFail, "image.DecompressImage", "source is not a sparse image")
	}
	f := h.format()
	if dst.Format() != f {
		return icerr.New(icerr.BadCast, "image.DecompressImage", "format mismatch")
	}
	if dst.NumPixels() != int(h.width)*int(h.height) {
		return icerr.New(icerr.SanityCheckFail, "image.DecompressImage", "dimension mismatch")
	}
	dst.Clear(bg)

	bpp := f.BytesPerPixel()
	runs := src.runs()
	off, pos := 0, 0
	for off < len(runs) {
		inact := int(getUint32(runs[off:]))
		act := int(getUint32(runs[off+4:]))
		pos += inact
		payload := runs[off+runHeaderSize : off+runHeaderSize+act*bpp]
		for p := 0; p < act; p++ {
			unpackPixel(dst, pos+p, payload[p*bpp:(p+1)*bpp])
		}
		pos += act
		off += runHeaderSize + act*bpp
	}
	return nil
}
