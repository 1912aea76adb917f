// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package state

import (
	"fmt"
	"io"
)

// slotName gives each Slot a readable label for Dump; it is not
// meant to be exhaustive documentation, just a debugging aid.
var slotName = map[Slot]string{
	Rank: "Rank", NumProcesses: "NumProcesses", ReplicationGroup: "ReplicationGroup",
	CompositeOrder: "CompositeOrder", ProcessOrder: "ProcessOrder",
	ColorFmt: "ColorFmt", DepthFmt: "DepthFmt", BackgroundColorF: "BackgroundColorF",
	BackgroundPacked: "BackgroundPacked", MaxTileWidth: "MaxTileWidth", MaxTileHeight: "MaxTileHeight",
	TileCount: "TileCount", TileViewport: "TileViewport", TileDisplayNode: "TileDisplayNode",
	TileContribCount: "TileContribCount", TileContribMask: "TileContribMask",
	LocalDisplayedTile: "LocalDisplayedTile",
	CompositeMode: "CompositeMode", DrawCallback: "DrawCallback", Destructor: "Destructor",
	FrameCount: "FrameCount", TimeRender: "TimeRender", TimeRead: "TimeRead", TimeWrite: "TimeWrite",
	TimeCompress: "TimeCompress", TimeCompare: "TimeCompare", TimeComposite: "TimeComposite",
	TimeTotal: "TimeTotal", BytesSent: "BytesSent",
	StrategyBuffer0: "StrategyBuffer0", StrategyBuffer1: "StrategyBuffer1",
	StrategyBuffer2: "StrategyBuffer2", StrategyBuffer3: "StrategyBuffer3",
	FloatingViewport: "FloatingViewport", OrderedComposite: "OrderedComposite",
	CorrectColoredBackground: "CorrectColoredBackground", CompositeOneBuffer: "CompositeOneBuffer",
	SanityCheck: "SanityCheck",
}

// Dump writes a line per slot, indexed explicitly rather than via
// pointer increment (spec §9's Open Question: the original's
// icetStateDump advances a raw pointer through the slot array, which
// leaves it unclear whether unset slots after the first set one print
// their index correctly; walking slots[i] by i sidesteps the
// question entirely).
func (s *Store) Dump(w io.Writer) error {
	for i := range s.slots {
		sl := Slot(i)
		name := slotName[sl]
		if name == "" {
			name = fmt.Sprintf("slot%d", i)
		}
		if sl >= enableBegin && sl < enableEnd {
			v, _ := s.IsEnabled(sl)
			if _, err := fmt.Fprintf(w, "%-24s enable=%v time=%d\n", name, v, s.slots[i].time); err != nil {
				return err
			}
			continue
		}
		sp := &s.slots[i]
		if sp.typ == None {
			if _, err := fmt.Fprintf(w, "%-24s (unset)\n", name); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%-24s type=%s size=%d time=%d\n", name, sp.typ, sp.size(), sp.time); err != nil {
			return err
		}
	}
	return nil
}
