package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/go-docquery/pkg/document"
)

const (
	// Magic bytes to identify our file format
	MagicBytes = "GODQ"
	// Current version
	FormatVersion = 1
	// File extension for collection snapshots
	FileExtension = ".godq"

	// FlagCompressed is set when the payload is an LZ4 block. Payloads that
	// do not compress are stored raw.
	FlagCompressed uint8 = 1 << 0

	// maxLZ4Ratio is the largest expansion an LZ4 block can decode to.
	maxLZ4Ratio = 255
)

// FileHeader represents the header of a snapshot file
type FileHeader struct {
	Magic     [4]byte // "GODQ"
	Version   uint8   // Format version
	Flags     uint8
	Reserved  [2]byte // Reserved for future use
	RawLength uint32  // Length of the uncompressed msgpack payload
}

// WriteHeader writes the file header to the given writer
func WriteHeader(w io.Writer, flags uint8, rawLength int) error {
	header := FileHeader{
		Magic:     [4]byte{'G', 'O', 'D', 'Q'},
		Version:   FormatVersion,
		Flags:     flags,
		RawLength: uint32(rawLength),
	}

	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the file header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}

	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}

	return &header, nil
}

// Snapshot is the persisted form of one collection. Documents keep their
// insertion order and field order.
type Snapshot struct {
	Name      string               `msgpack:"name"`
	Identity  string               `msgpack:"identity"`
	Documents []*document.Document `msgpack:"documents"`
}

// EncodeSnapshot writes a header followed by the msgpack payload of snap,
// LZ4 compressed when that makes it smaller.
func EncodeSnapshot(w io.Writer, snap *Snapshot) error {
	raw, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(raw, compressed, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}

	flags, payload := uint8(0), raw
	if n > 0 && n < len(raw) {
		flags, payload = FlagCompressed, compressed[:n]
	}

	if err := WriteHeader(w, flags, len(raw)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if header.Flags&FlagCompressed != 0 {
		if uint64(header.RawLength) > uint64(len(payload))*maxLZ4Ratio {
			return nil, fmt.Errorf("header declares %d bytes, more than %d compressed bytes can hold", header.RawLength, len(payload))
		}
		raw := make([]byte, header.RawLength)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress data: %w", err)
		}
		if n != len(raw) {
			return nil, fmt.Errorf("decompressed %d bytes, header declares %d", n, len(raw))
		}
		payload = raw
	}

	var snap Snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return &snap, nil
}
