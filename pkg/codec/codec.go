// Package codec frames persisted record values. Each stored value carries a
// revision counter, a compression flag and an xxhash64 checksum so that
// corruption is detected on read rather than handed back to callers.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the payload compression codec
type Compression uint8

const (
	// NoCompression stores payloads verbatim
	NoCompression Compression = iota
	// Snappy compresses payloads with snappy
	Snappy
	// Zstd compresses payloads with zstandard
	Zstd
)

const (
	frameMagic  = 0xD5
	headerSize  = 1 + 1 + 8 + 8 // magic, flag, revision, checksum
	minCompress = 64            // payloads below this are stored verbatim
)

var (
	// ErrInvalidFrame is returned when a stored value does not parse as a frame
	ErrInvalidFrame = errors.New("invalid record frame")
	// ErrChecksumMismatch is returned when a frame's payload fails verification
	ErrChecksumMismatch = errors.New("record checksum mismatch")
	// ErrUnknownCompression is returned for an unsupported compression flag
	ErrUnknownCompression = errors.New("unknown compression codec")
)

// Codec encodes and decodes record frames. A single Codec is shared by all
// transactions of a database and is safe for concurrent use.
type Codec struct {
	compression Compression
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
}

// New creates a Codec that writes payloads with the given compression.
// Frames written with any compression remain readable regardless of the
// configured one.
func New(compression Compression) (*Codec, error) {
	switch compression {
	case NoCompression, Snappy, Zstd:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, compression)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Codec{
		compression: compression,
		zstdEncoder: enc,
		zstdDecoder: dec,
	}, nil
}

// Encode frames the document bytes with the given revision.
func (c *Codec) Encode(revision uint64, doc []byte) ([]byte, error) {
	compression := c.compression
	payload := doc
	if len(doc) < minCompress {
		compression = NoCompression
	} else {
		switch compression {
		case Snappy:
			payload = snappy.Encode(nil, doc)
		case Zstd:
			payload = c.zstdEncoder.EncodeAll(doc, nil)
		}
	}

	frame := make([]byte, headerSize+len(payload))
	frame[0] = frameMagic
	frame[1] = byte(compression)
	binary.BigEndian.PutUint64(frame[2:10], revision)
	binary.BigEndian.PutUint64(frame[10:18], xxhash.Sum64(payload))
	copy(frame[headerSize:], payload)
	return frame, nil
}

// Decode verifies and unwraps a frame, returning the revision and the
// document bytes.
func (c *Codec) Decode(frame []byte) (uint64, []byte, error) {
	if len(frame) < headerSize || frame[0] != frameMagic {
		return 0, nil, ErrInvalidFrame
	}

	revision := binary.BigEndian.Uint64(frame[2:10])
	checksum := binary.BigEndian.Uint64(frame[10:18])
	payload := frame[headerSize:]

	if xxhash.Sum64(payload) != checksum {
		return 0, nil, ErrChecksumMismatch
	}

	switch Compression(frame[1]) {
	case NoCompression:
		doc := make([]byte, len(payload))
		copy(doc, payload)
		return revision, doc, nil
	case Snappy:
		doc, err := snappy.Decode(nil, payload)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		return revision, doc, nil
	case Zstd:
		doc, err := c.zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		return revision, doc, nil
	default:
		return 0, nil, fmt.Errorf("%w: %d", ErrUnknownCompression, frame[1])
	}
}

// Close releases the codec's resources.
func (c *Codec) Close() error {
	if c.zstdEncoder != nil {
		c.zstdEncoder.Close()
		c.zstdEncoder = nil
	}
	if c.zstdDecoder != nil {
		c.zstdDecoder.Close()
		c.zstdDecoder = nil
	}
	return nil
}
