package packfile

import (
	"errors"
	"io"
	"os"
)

const writerPadBufSize = 4096

// Write creates a pack file at path containing payload packed for the
// given geometry. The payload is written at a cache-line aligned offset
// so readers can map it and cast the leading bias segment directly.
func Write(path string, g Geometry, payload []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := WriteFile(f, g, payload); err != nil {
		return err
	}
	return f.Close()
}

// WriteFile writes a complete pack to f, truncating any existing content.
// The header is reserved up-front and patched once the payload is on disk.
func WriteFile(f *os.File, g Geometry, payload []byte) error {
	if f == nil {
		return errors.New("packfile: nil file")
	}
	if g.N <= 0 || g.K <= 0 || g.Multis <= 0 {
		return errors.New("packfile: invalid geometry")
	}

	// Make sure we always produce a file whose on-disk size matches header.FileSize.
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := writeZeros(f, headerSize); err != nil {
		return err
	}
	if err := alignTo(f, payloadAlign); err != nil {
		return err
	}

	payloadOffset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeFull(f, payload); err != nil {
		return err
	}

	fileSize, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := f.Truncate(fileSize); err != nil {
		return err
	}

	var header Header
	copy(header.Magic[:], MagicQWP)
	header.Major = CurrentMajor
	header.Minor = CurrentMinor
	header.HeaderSize = headerSize
	header.N = uint32(g.N)
	header.K = uint32(g.K)
	header.Multis = uint32(g.Multis)
	header.OutWidth = uint32(g.OutWidth)
	header.KUnroll = uint32(g.KUnroll)
	header.InnerBlock = uint32(g.InnerBlock)
	header.OuterBlock = uint32(g.OuterBlock)
	header.AOffset = g.AOffset
	header.BOffset = g.BOffset
	header.PayloadOffset = uint64(payloadOffset)
	header.PayloadSize = uint64(len(payload))
	header.FileSize = uint64(fileSize)

	// Patch header at start of file.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var hdrBuf [headerSize]byte
	if !encodeHeader(hdrBuf[:], header) {
		return errors.New("packfile: encode header failed")
	}
	if err := writeFull(f, hdrBuf[:]); err != nil {
		return err
	}

	return f.Sync()
}

func alignTo(f *os.File, n int64) error {
	if n <= 1 {
		return nil
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	mod := pos % n
	if mod == 0 {
		return nil
	}
	return writeZeros(f, int(n-mod))
}

func writeZeros(f *os.File, n int) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, min(n, writerPadBufSize))
	for n > 0 {
		toWrite := min(n, len(buf))
		if err := writeFull(f, buf[:toWrite]); err != nil {
			return err
		}
		n -= toWrite
	}
	return nil
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
