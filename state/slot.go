// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package state implements the fixed-capacity, typed key→value store
// that parameterizes one compositing context (tile geometry, formats,
// composite mode, scratch buffers, timing counters). Every tunable
// surfaced by the library is a slot in this store rather than a
// config file or a build flag.
package state

// Type identifies the value kind currently held by a slot.
type Type uint8

// Value kinds a slot may hold.
const (
	None Type = iota
	I16
	I32
	F32
	F64
	Bool
	Pointer
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	case Pointer:
		return "pointer"
	default:
		return "invalid"
	}
}

// Slot identifies one entry of the state table.
type Slot int

// State slots. The contiguous range [enableBegin, enableEnd) is the
// reserved "enable bit" sub-range (spec §4.2): these slots may only
// be accessed through Enable/Disable/IsEnabled, never through the
// generic scalar/vector setters and getters.
const (
	// Rank is this process's rank in the communicator group.
	Rank Slot = iota
	// NumProcesses is the size of the communicator group.
	NumProcesses
	// ReplicationGroup is the set of ranks that hold an identical
	// copy of this rank's data (defaults to {Rank}).
	ReplicationGroup
	// CompositeOrder is a permutation of ranks defining the front-to-back
	// order for alpha blending: index 0 is the nearest (frontmost)
	// operand, the last index the farthest (backmost) one.
	CompositeOrder
	// ProcessOrder is a general-purpose rank permutation independent
	// of CompositeOrder.
	ProcessOrder

	// ColorFmt is the image.ColorFmt value (stored as I32) used by
	// every tile rendered under this context.
	ColorFmt
	// DepthFmt is the image.DepthFmt value (stored as I32).
	DepthFmt
	// BackgroundColorF is the background color as 4 floats.
	BackgroundColorF
	// BackgroundPacked holds an image.Background value (Pointer),
	// recomputed by the direct-send strategy when BackgroundColorF,
	// ColorFmt or CorrectColoredBackground has changed since it was
	// last stored.
	BackgroundPacked

	// MaxTileWidth and MaxTileHeight bound every tile's viewport.
	MaxTileWidth
	MaxTileHeight
	// TileCount is the number of display tiles, T.
	TileCount
	// TileViewport packs 4 int32 per tile: x, y, w, h.
	TileViewport
	// TileDisplayNode holds the display-owner rank per tile.
	TileDisplayNode
	// TileContribCount holds, per tile, the number of ranks
	// contributing a non-empty fragment.
	TileContribCount
	// TileContribMask holds, per tile, a bitmask of contributing ranks
	// (bit i set means rank i renders into that tile); unset (zero
	// length) means every rank contributes to every tile.
	TileContribMask
	// LocalDisplayedTile is the index of the tile this rank
	// displays, or -1.
	LocalDisplayedTile

	// CompositeMode is an image.CompositeMode value (stored as I32).
	CompositeMode

	// DrawCallback is the host-supplied render function (Pointer).
	DrawCallback
	// Destructor is the render-layer teardown hook (Pointer).
	Destructor

	// FrameCount counts frames composited under this context.
	FrameCount

	// Timing counters, in seconds, plus total bytes sent.
	TimeRender
	TimeRead
	TimeWrite
	TimeCompress
	TimeCompare
	TimeComposite
	TimeTotal
	BytesSent

	// StrategyBuffer0..3 are the scratch arenas the direct-send
	// strategy reuses across frames (spec §4.2 "four suffice").
	StrategyBuffer0
	StrategyBuffer1
	StrategyBuffer2
	StrategyBuffer3

	// FloatingViewport: flag for letting tiles shrink to their actual
	// contribution footprint (default on). It is stored only; no code
	// in this module reads it, and tiles always use their
	// TileViewport.
	FloatingViewport
	// OrderedComposite: display processes must merge incoming
	// fragments in CompositeOrder rather than arrival order.
	OrderedComposite
	// CorrectColoredBackground: when enabled, a color-only fragment
	// (no depth channel) whose color happens to equal the background
	// is still treated as active if its alpha channel is fully
	// opaque, rather than being classified as background by color
	// match alone (default off, matching the naive color-equality
	// test).
	CorrectColoredBackground
	// CompositeOneBuffer: flag for reusing a single accumulator
	// buffer across incoming fragments (default on). It is stored
	// only; the direct-send strategy always uses one accumulator
	// buffer whatever its value.
	CompositeOneBuffer
	// SanityCheck: flag for defensive validation of buffer sizes and
	// sparse headers (default on). It is stored only; those checks
	// run whatever its value.
	SanityCheck

	// numSlots is the fixed capacity of the slot table.
	numSlots
)

// enableBegin and enableEnd bound the reserved contiguous sub-range
// of boolean slots accessible only through Enable/Disable/IsEnabled.
const (
	enableBegin = FloatingViewport
	enableEnd   = numSlots
)
