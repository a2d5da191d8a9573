// Package packfile implements the quantized weight pack file format.
//
// A pack file is a single-file, memory-mappable container holding a weight
// buffer that has already been rearranged into a kernel's panel layout,
// together with the geometry it was packed for. Consumers map the payload
// read-only and hand it straight to the execution engine; the header is
// enough to reject a buffer packed for a different shape or kernel.
package packfile

import "encoding/binary"

// Pack file global constants must never change.
const (
	// MagicQWP is the file magic for all weight pack files.
	// It is encoded as "QWP\0".
	MagicQWP = "QWP\x00"

	// Current Major Version: Any change indicates a breaking format change.
	CurrentMajor uint16 = 1

	// Current Minor Version: Versions may add new optional fields.
	CurrentMinor uint16 = 0

	headerSize = 80

	// payloadAlign keeps the payload start cache-line aligned so engine
	// views can cast the bias segment to []int32 safely.
	payloadAlign = 64
)

type Header struct {
	Magic      [4]byte
	Major      uint16
	Minor      uint16
	HeaderSize uint32
	Flags      uint32

	N      uint32
	K      uint32
	Multis uint32

	OutWidth   uint32
	KUnroll    uint32
	InnerBlock uint32
	OuterBlock uint32

	AOffset int32
	BOffset int32

	PayloadOffset uint64
	PayloadSize   uint64
	FileSize      uint64
}

func (h *Header) Valid() bool {
	if string(h.Magic[:]) != MagicQWP {
		return false
	}
	if h.HeaderSize < headerSize {
		return false
	}
	if h.N == 0 || h.K == 0 || h.Multis == 0 {
		return false
	}
	return true
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

// Geometry is the problem shape and kernel layout a payload was packed
// for. The zero-point offsets are recorded because the payload's leading
// bias segment bakes them in.
type Geometry struct {
	N      int
	K      int
	Multis int

	OutWidth int
	KUnroll  int

	InnerBlock int
	OuterBlock int

	AOffset int32
	BOffset int32
}

func (h *Header) Geometry() Geometry {
	return Geometry{
		N:          int(h.N),
		K:          int(h.K),
		Multis:     int(h.Multis),
		OutWidth:   int(h.OutWidth),
		KUnroll:    int(h.KUnroll),
		InnerBlock: int(h.InnerBlock),
		OuterBlock: int(h.OuterBlock),
		AOffset:    h.AOffset,
		BOffset:    h.BOffset,
	}
}

// Header byte layout (explicit little-endian, independent of struct padding):
//
//	0   magic
//	4   major, minor
//	8   header size
//	12  flags
//	16  n, k, multis
//	28  out width, k unroll, inner block, outer block
//	44  a offset, b offset
//	52  reserved
//	56  payload offset, payload size, file size

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < headerSize {
		return false
	}
	copy(dst[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[4:], h.Major)
	binary.LittleEndian.PutUint16(dst[6:], h.Minor)
	binary.LittleEndian.PutUint32(dst[8:], h.HeaderSize)
	binary.LittleEndian.PutUint32(dst[12:], h.Flags)
	binary.LittleEndian.PutUint32(dst[16:], h.N)
	binary.LittleEndian.PutUint32(dst[20:], h.K)
	binary.LittleEndian.PutUint32(dst[24:], h.Multis)
	binary.LittleEndian.PutUint32(dst[28:], h.OutWidth)
	binary.LittleEndian.PutUint32(dst[32:], h.KUnroll)
	binary.LittleEndian.PutUint32(dst[36:], h.InnerBlock)
	binary.LittleEndian.PutUint32(dst[40:], h.OuterBlock)
	binary.LittleEndian.PutUint32(dst[44:], uint32(h.AOffset))
	binary.LittleEndian.PutUint32(dst[48:], uint32(h.BOffset))
	binary.LittleEndian.PutUint32(dst[52:], 0)
	binary.LittleEndian.PutUint64(dst[56:], h.PayloadOffset)
	binary.LittleEndian.PutUint64(dst[64:], h.PayloadSize)
	binary.LittleEndian.PutUint64(dst[72:], h.FileSize)
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	var h Header
	if len(src) < headerSize {
		return h, false
	}
	copy(h.Magic[:], src[0:4])
	h.Major = binary.LittleEndian.Uint16(src[4:])
	h.Minor = binary.LittleEndian.Uint16(src[6:])
	h.HeaderSize = binary.LittleEndian.Uint32(src[8:])
	h.Flags = binary.LittleEndian.Uint32(src[12:])
	h.N = binary.LittleEndian.Uint32(src[16:])
	h.K = binary.LittleEndian.Uint32(src[20:])
	h.Multis = binary.LittleEndian.Uint32(src[24:])
	h.OutWidth = binary.LittleEndian.Uint32(src[28:])
	h.KUnroll = binary.LittleEndian.Uint32(src[32:])
	h.InnerBlock = binary.LittleEndian.Uint32(src[36:])
	h.OuterBlock = binary.LittleEndian.Uint32(src[40:])
	h.AOffset = int32(binary.LittleEndian.Uint32(src[44:]))
	h.BOffset = int32(binary.LittleEndian.Uint32(src[48:]))
	h.PayloadOffset = binary.LittleEndian.Uint64(src[56:])
	h.PayloadSize = binary.LittleEndian.Uint64(src[64:])
	h.FileSize = binary.LittleEndian.Uint64(src[72:])
	return h, true
}
