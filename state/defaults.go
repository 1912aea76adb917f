// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package state

import "github.com/gviegas/compose/image"

// SetDefaults populates a freshly created store per spec §4.2, given
// the rank and size of the context's communicator group.
func SetDefaults(s *Store, rank, numProcesses int32) {
	s.SetI32(Rank, rank)
	s.SetI32(NumProcesses, numProcesses)
	s.SetI32Vec(ReplicationGroup, []int32{rank})

	order := identityPermutation(numProcesses)
	s.SetI32Vec(CompositeOrder, order)
	s.SetI32Vec(ProcessOrder, append([]int32(nil), order...))

	s.SetF32Vec(BackgroundColorF, []float32{0, 0, 0, 0})
	s.SetI32(ColorFmt, int32(image.ColorRGBA8))
	s.SetI32(DepthFmt, int32(image.DepthF32))

	s.SetI32(MaxTileWidth, 0)
	s.SetI32(MaxTileHeight, 0)
	s.SetI32(TileCount, 1)
	s.SetI32Vec(TileViewport, []int32{0, 0, 0, 0})
	s.SetI32Vec(TileDisplayNode, nil)
	s.SetI32Vec(TileContribCount, []int32{0})
	s.SetI32Vec(TileContribMask, nil)
	s.SetI32(LocalDisplayedTile, -1)

	s.SetI32(CompositeMode, int32(image.Blend))

	s.SetPointer(DrawCallback, nil)
	s.SetPointer(Destructor, nil)

	s.SetI32(FrameCount, 0)

	for _, sl := range []Slot{TimeRender, TimeRead, TimeWrite, TimeCompress, TimeCompare, TimeComposite, TimeTotal, BytesSent} {
		s.SetF64(sl, 0)
	}

	s.Enable(FloatingViewport)
	s.Disable(OrderedComposite)
	s.Disable(CorrectColoredBackground)
	s.Enable(CompositeOneBuffer)
	s.Enable(SanityCheck)
}

func identityPermutation(n int32) []int32 {
	p := make([]int32, n)
	for i := range p {
		p[i] = int32(i)
	}
	return p
}
