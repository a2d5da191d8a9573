package packfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testGeometry() Geometry {
	return Geometry{
		N:          100,
		K:          70,
		Multis:     2,
		OutWidth:   16,
		KUnroll:    4,
		InnerBlock: 70,
		OuterBlock: 48,
		AOffset:    3,
		BOffset:    -2,
	}
}

func TestWriteOpenRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "weights.qwp")
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	g := testGeometry()

	if err := Write(path, g, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	pf, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if cerr := pf.Close(); cerr != nil {
			t.Fatalf("close: %v", cerr)
		}
	}()

	if pf.Header == nil {
		t.Fatalf("missing header")
	}
	if pf.Header.HeaderSize != headerSize {
		t.Fatalf("header size mismatch: got %d want %d", pf.Header.HeaderSize, headerSize)
	}
	if got := pf.Geometry(); got != g {
		t.Fatalf("geometry mismatch: got %+v want %+v", got, g)
	}
	if !bytes.Equal(pf.Payload(), payload) {
		t.Fatalf("payload mismatch: got %v", pf.Payload())
	}
	if pf.Header.PayloadOffset%payloadAlign != 0 {
		t.Fatalf("payload offset %d not %d-byte aligned", pf.Header.PayloadOffset, payloadAlign)
	}
}

func TestOpenReaderAtRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "weights.qwp")
	payload := []byte{9, 8, 7}
	if err := Write(path, testGeometry(), payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	rf, err := os.Open(path)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer func() { _ = rf.Close() }()

	st, err := rf.Stat()
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	pf, err := OpenReaderAt(rf, st.Size())
	if err != nil {
		t.Fatalf("open readerat: %v", err)
	}
	defer func() { _ = pf.Close() }()

	if pf.mmapped {
		t.Fatalf("OpenReaderAt should not mmap")
	}
	if !bytes.Equal(pf.Payload(), payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "weights.qwp")
	if err := Write(path, testGeometry(), []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[0] = 'X'
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "weights.qwp")
	if err := Write(path, testGeometry(), []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-2], 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	if _, err := Open(path); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}
}

func TestHeaderEncodingLittleEndian(t *testing.T) {
	t.Parallel()

	h := Header{
		Magic:         [4]byte{'Q', 'W', 'P', 0},
		Major:         0x1122,
		Minor:         0x3344,
		HeaderSize:    headerSize,
		N:             0x01020304,
		K:             7,
		Multis:        2,
		OutWidth:      16,
		KUnroll:       4,
		InnerBlock:    7,
		OuterBlock:    16,
		AOffset:       -5,
		BOffset:       9,
		PayloadOffset: 0x0102030405060708,
		PayloadSize:   0x1112131415161718,
		FileSize:      0x2122232425262728,
	}
	var raw [headerSize]byte
	if !encodeHeader(raw[:], h) {
		t.Fatalf("encode header failed")
	}
	if raw[4] != 0x22 || raw[5] != 0x11 {
		t.Fatalf("major is not little-endian: %x", raw[4:6])
	}
	if raw[16] != 0x04 || raw[19] != 0x01 {
		t.Fatalf("n is not little-endian: %x", raw[16:20])
	}
	if raw[56] != 0x08 || raw[63] != 0x01 {
		t.Fatalf("payload offset is not little-endian: %x", raw[56:64])
	}

	decoded, ok := decodeHeader(raw[:])
	if !ok {
		t.Fatalf("decode header failed")
	}
	if decoded != h {
		t.Fatalf("header round-trip mismatch: got %+v want %+v", decoded, h)
	}
}
