// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package directsend implements the direct-send compositing strategy
// (spec §4.4): every contributor sends its sparse fragment directly
// to the tile's display owner, which merges arrivals under the
// current composite mode and decompresses the result.
package directsend

import (
	"encoding/binary"
	"time"

	"github.com/gviegas/compose/comm"
	"github.com/gviegas/compose/icerr"
	"github.com/gviegas/compose/image"
	"github.com/gviegas/compose/linear"
	"github.com/gviegas/compose/state"
)

// tagBase reserves a private message-tag range for this strategy's
// exchange traffic (spec §6: "the core assumes tags in a private
// range are available for its own use").
const tagBase = 0x49435400

func tileTag(tile int) int { return tagBase + tile }

// Viewport is a tile's pixel rectangle within the full composited
// output.
type Viewport struct{ X, Y, W, H int32 }

// DrawCallback renders geometry into out for the given tile viewport
// (spec §6). The core owns out's buffer; the host must not retain it
// after the call returns.
type DrawCallback func(projection, modelview linear.M4, background image.Background, viewport Viewport, out *image.Image) error

// Strategy drives one direct-send compositing pass against a state
// store and a communicator.
type Strategy struct {
	Store *state.Store
	Comm  comm.Communicator
	Draw  DrawCallback
}

type tileGeom struct {
	viewport     Viewport
	display      int32
	contribCount int32
	mask         int32 // -1 means "every rank contributes"
}

func (g tileGeom) contributes(rank int) bool {
	if g.mask == -1 {
		return true
	}
	return g.mask&(1<<uint(rank)) != 0
}

func loadTiles(s *state.Store) ([]tileGeom, error) {
	const op = "directsend.loadTiles"
	t32, err := s.GetI32(state.TileCount)
	if err != nil {
		return nil, err
	}
	t := int(t32)
	vp, err := s.GetI32Vec(state.TileViewport)
	if err != nil {
		return nil, err
	}
	if len(vp) != 4*t {
		return nil, icerr.New(icerr.SanityCheckFail, op, "TileViewport length mismatch")
	}
	disp, err := s.GetI32Vec(state.TileDisplayNode)
	if err != nil {
		return nil, err
	}
	if len(disp) != t {
		return nil, icerr.New(icerr.SanityCheckFail, op, "TileDisplayNode length mismatch")
	}
	cnt, err := s.GetI32Vec(state.TileContribCount)
	if err != nil {
		return nil, err
	}
	if len(cnt) != t {
		return nil, icerr.New(icerr.SanityCheckFail, op, "TileContribCount length mismatch")
	}
	mask, err := s.GetI32Vec(state.TileContribMask)
	if err != nil {
		return nil, err
	}
	if len(mask) != 0 && len(mask) != t {
		return nil, icerr.New(icerr.SanityCheckFail, op, "TileContribMask length mismatch")
	}

	tiles := make([]tileGeom, t)
	for i := range tiles {
		tiles[i] = tileGeom{
			viewport:     Viewport{vp[4*i], vp[4*i+1], vp[4*i+2], vp[4*i+3]},
			display:      disp[i],
			contribCount: cnt[i],
			mask:         -1,
		}
		if len(mask) != 0 {
			tiles[i].mask = mask[i]
		}
	}
	return tiles, nil
}

func resolveFormat(s *state.Store) (image.Format, error) {
	cf, err := s.GetI32(state.ColorFmt)
	if err != nil {
		return image.Format{}, err
	}
	df, err := s.GetI32(state.DepthFmt)
	if err != nil {
		return image.Format{}, err
	}
	return image.Format{Color: image.ColorFmt(cf), Depth: image.DepthFmt(df)}, nil
}

// resolveBackground recomputes the packed background only when
// BackgroundColorF, ColorFmt or CorrectColoredBackground has changed
// since the last call, caching the result in the BackgroundPacked slot
// (spec §4.2).
func resolveBackground(s *state.Store) (image.Background, error) {
	_, _, bgTime, err := s.Query(state.BackgroundColorF)
	if err != nil {
		return image.Background{}, err
	}
	_, _, cfTime, err := s.Query(state.ColorFmt)
	if err != nil {
		return image.Background{}, err
	}
	_, _, ccbTime, err := s.Query(state.CorrectColoredBackground)
	if err != nil {
		return image.Background{}, err
	}
	packedTyp, _, packedTime, err := s.Query(state.BackgroundPacked)
	if err != nil {
		return image.Background{}, err
	}
	newest := bgTime
	if cfTime > newest {
		newest = cfTime
	}
	if ccbTime > newest {
		newest = ccbTime
	}
	if packedTyp != state.None && packedTime >= newest {
		v, err := s.GetPointer(state.BackgroundPacked)
		if err != nil {
			return image.Background{}, err
		}
		return v.(image.Background), nil
	}

	rgba, err := s.GetF32Vec(state.BackgroundColorF)
	if err != nil {
		return image.Background{}, err
	}
	if len(rgba) != 4 {
		return image.Background{}, icerr.New(icerr.SanityCheckFail, "directsend.resolveBackground", "BackgroundColorF length mismatch")
	}
	cf, err := s.GetI32(state.ColorFmt)
	if err != nil {
		return image.Background{}, err
	}
	correct, err := s.IsEnabled(state.CorrectColoredBackground)
	if err != nil {
		return image.Background{}, err
	}
	bg := image.NewBackground([4]float32{rgba[0], rgba[1], rgba[2], rgba[3]}, image.ColorFmt(cf))
	bg.Correct = correct
	if err := s.SetPointer(state.BackgroundPacked, bg); err != nil {
		return image.Background{}, err
	}
	return bg, nil
}

// orderedContributors filters the composite order (front-to-back) down
// to the ranks that contribute to g, for draining arrivals in
// composite order rather than arrival order.
func orderedContributors(s *state.Store, g tileGeom) ([]int32, error) {
	order, err := s.GetI32Vec(state.CompositeOrder)
	if err != nil {
		return nil, err
	}
	out := make([]int32, 0, len(order))
	for _, r := range order {
		if g.contributes(int(r)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func dummyImage(f image.Format) *image.Image {
	buf := make([]byte, image.BufferSize(1, 1, f))
	im, _ := image.AssignBuffer(buf, 1, 1, f)
	return im
}

// Composite renders and composites one frame, returning the image for
// the tile this rank displays, or a 1x1 dummy image if it displays
// none (spec §4.4).
func (s *Strategy) Composite(projection, modelview linear.M4) (*image.Image, error) {
	totalStart := time.Now()
	defer func() { s.Store.AddTiming(state.TimeTotal, time.Since(totalStart)) }()

	fmt_, err := resolveFormat(s.Store)
	if err != nil {
		return nil, err
	}
	bg, err := resolveBackground(s.Store)
	if err != nil {
		return nil, err
	}
	tiles, err := loadTiles(s.Store)
	if err != nil {
		return nil, err
	}

	destBuf, err := s.Store.GetBuffer(state.StrategyBuffer3, len(tiles)*4)
	if err != nil {
		return nil, err
	}
	for i, g := range tiles {
		binary.LittleEndian.PutUint32(destBuf[i*4:], uint32(g.display))
	}
	dest := make([]int32, len(tiles))
	for i := range dest {
		dest[i] = int32(binary.LittleEndian.Uint32(destBuf[i*4:]))
	}

	maxW, err := s.Store.GetI32(state.MaxTileWidth)
	if err != nil {
		return nil, err
	}
	maxH, err := s.Store.GetI32(state.MaxTileHeight)
	if err != nil {
		return nil, err
	}

	img, err := s.renderAndTransfer(tiles, dest, fmt_, bg, projection, modelview, int(maxW), int(maxH))
	if err != nil {
		return nil, err
	}

	frameCount, err := s.Store.GetI32(state.FrameCount)
	if err != nil {
		return nil, err
	}
	s.Store.SetI32(state.FrameCount, frameCount+1)
	return img, nil
}

// renderAndTransfer is the render→encode→exchange→merge routine of
// spec §4.4.1. The non-blocking receives for the displayed tile are
// posted up front, then render-and-send and the receive-and-merge
// drain run in sequence on this goroutine: the core spawns no threads
// of its own and suspends only inside communicator calls (spec §5), so
// overlap between rendering and arrival comes from the Irecvs already
// posted, not from running the two phases concurrently.
func (s *Strategy) renderAndTransfer(tiles []tileGeom, dest []int32, fmt_ image.Format, bg image.Background, projection, modelview linear.M4, maxW, maxH int) (*image.Image, error) {
	rank := s.Comm.Rank()

	localDisplayed32, err := s.Store.GetI32(state.LocalDisplayedTile)
	if err != nil {
		return nil, err
	}
	display := int(localDisplayed32)

	ordered, err := s.Store.IsEnabled(state.OrderedComposite)
	if err != nil {
		return nil, err
	}
	mode32, err := s.Store.GetI32(state.CompositeMode)
	if err != nil {
		return nil, err
	}
	mode := image.CompositeMode(mode32)

	sparseSize := image.SparseBufferSize(maxW, maxH, fmt_)
	displaying := display >= 0 && tiles[display].contribCount > 0

	var (
		contribOrder []int32
		orderedBufs  map[int32][]byte
		orderedReqs  map[int32]comm.Request
		pendingReqs  []comm.Request
		pendingBufs  [][]byte
		selfExpected bool
	)

	if displaying {
		g := tiles[display]
		selfExpected = g.contributes(rank)
		if ordered {
			contribOrder, err = orderedContributors(s.Store, g)
			if err != nil {
				return nil, err
			}
			if len(contribOrder) != int(g.contribCount) {
				return nil, icerr.New(icerr.SanityCheckFail, "directsend.renderAndTransfer",
					"ordered composite requires an exact contributor mask")
			}
			orderedBufs = make(map[int32][]byte, len(contribOrder))
			orderedReqs = make(map[int32]comm.Request, len(contribOrder))
			for _, r := range contribOrder {
				if int(r) == rank {
					continue
				}
				buf := make([]byte, sparseSize)
				req, err := s.Comm.Irecv(buf, int(r), tileTag(display))
				if err != nil {
					return nil, err
				}
				orderedBufs[r] = buf
				orderedReqs[r] = req
			}
		} else {
			expected := int(g.contribCount)
			if selfExpected {
				expected--
			}
			pendingReqs = make([]comm.Request, 0, expected)
			pendingBufs = make([][]byte, 0, expected)
			for i := 0; i < expected; i++ {
				buf := make([]byte, sparseSize)
				req, err := s.Comm.Irecv(buf, -1, tileTag(display))
				if err != nil {
					return nil, err
				}
				pendingReqs = append(pendingReqs, req)
				pendingBufs = append(pendingBufs, buf)
			}
		}
	}

	selfCh := make(chan *image.SparseImage, 1)

	if err := s.renderAndSend(tiles, dest, fmt_, bg, projection, modelview, maxW, maxH, display, selfCh); err != nil {
		return nil, err
	}

	if display < 0 {
		return dummyImage(fmt_), nil
	}

	var accum *image.SparseImage
	if displaying {
		var err error
		accum, err = s.drainAndMerge(tiles[display], mode, bg, ordered, contribOrder, orderedBufs, orderedReqs,
			pendingReqs, pendingBufs, selfExpected, selfCh, sparseSize)
		if err != nil {
			return nil, err
		}
	}

	return decompressResult(tiles[display], fmt_, bg, accum, s.Store)
}

// renderAndSend renders and compresses every tile this rank
// contributes to, then either sends the fragment to its display owner
// or, for the tile this rank itself displays, hands it off locally
// through selfCh.
func (s *Strategy) renderAndSend(tiles []tileGeom, dest []int32, fmt_ image.Format, bg image.Background, projection, modelview linear.M4, maxW, maxH, display int, selfCh chan<- *image.SparseImage) error {
	rank := s.Comm.Rank()
	denseSize := image.BufferSize(maxW, maxH, fmt_)
	outSize := image.SparseBufferSize(maxW, maxH, fmt_)

	denseBuf, err := s.Store.GetBuffer(state.StrategyBuffer0, denseSize)
	if err != nil {
		return err
	}
	outBuf, err := s.Store.GetBuffer(state.StrategyBuffer1, outSize)
	if err != nil {
		return err
	}

	for t, g := range tiles {
		if !g.contributes(rank) {
			continue
		}
		dw, dh := int(g.viewport.W), int(g.viewport.H)

		dense, err := image.AssignBuffer(denseBuf[:image.BufferSize(dw, dh, fmt_)], dw, dh, fmt_)
		if err != nil {
			return err
		}

		renderStart := time.Now()
		if err := s.Draw(projection, modelview, bg, g.viewport, dense); err != nil {
			return err
		}
		s.Store.AddTiming(state.TimeRender, time.Since(renderStart))

		compressStart := time.Now()
		sparseBound := image.SparseBufferSize(dw, dh, fmt_)
		sp, err := image.CompressImage(dense, bg, outBuf[:sparseBound])
		if err != nil {
			return err
		}
		s.Store.AddTiming(state.TimeCompress, time.Since(compressStart))

		destRank := int(dest[t])
		if destRank == rank {
			cp := append([]byte(nil), image.PackageForSend(sp)...)
			self, err := image.Unpackage(cp)
			if err != nil {
				return err
			}
			selfCh <- self
			continue
		}

		writeStart := time.Now()
		payload := image.PackageForSend(sp)
		if err := s.Comm.Send(payload, destRank, tileTag(t)); err != nil {
			return err
		}
		s.Store.AddTiming(state.TimeWrite, time.Since(writeStart))
		s.Store.AddBytesSent(len(payload))
	}
	return nil
}

// drainAndMerge waits for every expected fragment for the displayed
// tile and folds each into the accumulator kept in StrategyBuffer2, in
// composite order when ordered is set, arrival order otherwise.
func (s *Strategy) drainAndMerge(g tileGeom, mode image.CompositeMode, bg image.Background, ordered bool,
	contribOrder []int32, orderedBufs map[int32][]byte, orderedReqs map[int32]comm.Request,
	pendingReqs []comm.Request, pendingBufs [][]byte, selfExpected bool, selfCh <-chan *image.SparseImage,
	sparseSize int) (*image.SparseImage, error) {

	accumBuf, err := s.Store.GetBuffer(state.StrategyBuffer2, sparseSize)
	if err != nil {
		return nil, err
	}
	var accum *image.SparseImage
	merge := func(fragment *image.SparseImage) error {
		if accum == nil {
			accum = fragment
			return nil
		}
		compareStart := time.Now()
		merged, err := image.CompositeCompressedCompressed(fragment, accum, mode, bg, accumBuf[:sparseSize])
		s.Store.AddTiming(state.TimeComposite, time.Since(compareStart))
		if err != nil {
			return err
		}
		accum = merged
		return nil
	}

	if ordered {
		// contribOrder is front-to-back (index 0 nearest); merge folds
		// each new fragment in front of the accumulator, so draining
		// back-to-front here makes the nearest fragment (index 0) the
		// last, and therefore winning, operand.
		for i := len(contribOrder) - 1; i >= 0; i-- {
			r := contribOrder[i]
			if int(r) == s.Comm.Rank() {
				if err := merge(<-selfCh); err != nil {
					return nil, err
				}
				continue
			}
			req := orderedReqs[r]
			if _, err := s.Comm.Waitany([]comm.Request{req}); err != nil {
				return nil, err
			}
			sp, err := image.Unpackage(orderedBufs[r])
			if err != nil {
				return nil, err
			}
			if err := merge(sp); err != nil {
				return nil, err
			}
		}
		return accum, nil
	}

	if selfExpected {
		if err := merge(<-selfCh); err != nil {
			return nil, err
		}
	}
	remaining := append([]comm.Request(nil), pendingReqs...)
	bufs := append([][]byte(nil), pendingBufs...)
	for len(remaining) > 0 {
		idx, err := s.Comm.Waitany(remaining)
		if err != nil {
			return nil, err
		}
		sp, err := image.Unpackage(bufs[idx])
		if err != nil {
			return nil, err
		}
		if err := merge(sp); err != nil {
			return nil, err
		}
		remaining = append(remaining[:idx], remaining[idx+1:]...)
		bufs = append(bufs[:idx], bufs[idx+1:]...)
	}
	return accum, nil
}

func decompressResult(g tileGeom, fmt_ image.Format, bg image.Background, accum *image.SparseImage, store *state.Store) (*image.Image, error) {
	dw, dh := int(g.viewport.W), int(g.viewport.H)
	outDense := make([]byte, image.BufferSize(dw, dh, fmt_))
	dst, err := image.AssignBuffer(outDense, dw, dh, fmt_)
	if err != nil {
		return nil, err
	}
	if g.contribCount == 0 || accum == nil {
		dst.Clear(bg)
		return dst, nil
	}
	readStart := time.Now()
	err = image.DecompressImage(accum, dst, bg)
	store.AddTiming(state.TimeRead, time.Since(readStart))
	if err != nil {
		return nil, err
	}
	return dst, nil
}
