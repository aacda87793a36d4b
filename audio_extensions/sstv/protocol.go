package sstv

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Wire format for streaming a DecodeResult to a remote client (the
// websocket live-decode server in package main is the only producer/
// consumer today). Grounded on the teacher repository's hybrid binary PCM
// framing (pcm_binary.go): fixed magic, a version byte, a format byte selecting
// optional zstd compression, then a type-tagged payload.
//
// MESSAGE FORMAT:
// Offset | Size | Type   | Description
// -------|------|--------|----------------------------------------
// 0      | 2    | uint16 | Magic: 0x5354 ("ST")
// 2      | 1    | uint8  | Version: 2
// 3      | 1    | uint8  | MsgType
// 4      | 1    | uint8  | Format: 0=raw, 1=zstd (image body only)
// 5      | N    | []byte | Payload (MsgType-dependent, see below)
//
// MsgNoneFound has no payload (and no format byte is meaningful). MsgPartial
// and MsgFinished carry the raster: 4 bytes width (uint32 BE), 4 bytes height
// (uint32 BE), uncompressed, then width*height*3 RGB bytes, compressed with
// zstd (format 1) when compression shrinks the payload.

const (
	protocolMagic   uint16 = 0x5354
	protocolVersion uint8  = 2
)

// formatRaw and formatZstd select whether EncodeMessage's image payload is
// stored uncompressed or zstd-compressed, mirroring the teacher's
// pcm_binary.go PCMFormatRaw/PCMFormatZstd format byte.
const (
	formatRaw  uint8 = 0
	formatZstd uint8 = 1
)

var zstdEncoderPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	},
}

var zstdDecoder = sync.OnceValue(func() *zstd.Decoder {
	dec, _ := zstd.NewReader(nil)
	return dec
})

// MsgType tags the payload that follows the fixed header.
type MsgType uint8

const (
	MsgNoneFound MsgType = iota
	MsgPartial
	MsgFinished
)

func (t MsgType) String() string {
	switch t {
	case MsgNoneFound:
		return "NoneFound"
	case MsgPartial:
		return "Partial"
	case MsgFinished:
		return "Finished"
	default:
		return fmt.Sprintf("MsgType(%d)", uint8(t))
	}
}

// EncodeMessage serialises a DecodeResult into the wire format above.
func EncodeMessage(result DecodeResult) []byte {
	var msgType MsgType
	switch result.State {
	case NoneFound:
		msgType = MsgNoneFound
	case Partial:
		msgType = MsgPartial
	case Finished:
		msgType = MsgFinished
	}

	header := make([]byte, 5)
	binary.BigEndian.PutUint16(header[0:2], protocolMagic)
	header[2] = protocolVersion
	header[3] = uint8(msgType)

	if result.Image == nil {
		header[4] = formatRaw
		return header
	}

	dims := make([]byte, 8)
	binary.BigEndian.PutUint32(dims[0:4], uint32(ImageWidth))
	binary.BigEndian.PutUint32(dims[4:8], uint32(ImageHeight))

	body, format := compressImagePayload(result.Image.Pix)
	header[4] = format

	out := make([]byte, 0, len(header)+len(dims)+len(body))
	out = append(out, header...)
	out = append(out, dims...)
	out = append(out, body...)
	return out
}

// compressImagePayload zstd-compresses the raw RGB bytes, falling back to
// storing them raw when compression doesn't shrink them (e.g. noise-heavy
// decodes with little redundancy).
func compressImagePayload(pix []uint8) ([]byte, uint8) {
	enc := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(enc)

	compressed := enc.EncodeAll(pix, make([]byte, 0, len(pix)))
	if len(compressed) < len(pix) {
		return compressed, formatZstd
	}
	return pix, formatRaw
}

// DecodeMessage parses a message produced by EncodeMessage.
func DecodeMessage(b []byte) (MsgType, *Image, error) {
	if len(b) < 5 {
		return 0, nil, fmt.Errorf("sstv: message too short: %d bytes", len(b))
	}
	if magic := binary.BigEndian.Uint16(b[0:2]); magic != protocolMagic {
		return 0, nil, fmt.Errorf("sstv: bad magic 0x%04x", magic)
	}
	if version := b[2]; version != protocolVersion {
		return 0, nil, fmt.Errorf("sstv: unsupported version %d", version)
	}

	msgType := MsgType(b[3])
	format := b[4]
	if msgType == MsgNoneFound {
		return msgType, nil, nil
	}

	rest := b[5:]
	if len(rest) < 8 {
		return 0, nil, fmt.Errorf("sstv: truncated image header")
	}
	width := binary.BigEndian.Uint32(rest[0:4])
	height := binary.BigEndian.Uint32(rest[4:8])
	if width != ImageWidth || height != ImageHeight {
		return 0, nil, fmt.Errorf("sstv: unexpected raster size %dx%d", width, height)
	}

	body := rest[8:]
	pix := body
	if format == formatZstd {
		decoded, err := zstdDecoder().DecodeAll(body, make([]byte, 0, ImageWidth*ImageHeight*3))
		if err != nil {
			return 0, nil, fmt.Errorf("sstv: decompressing image payload: %w", err)
		}
		pix = decoded
	}
	if len(pix) != ImageWidth*ImageHeight*3 {
		return 0, nil, fmt.Errorf("sstv: truncated pixel data: got %d bytes", len(pix))
	}

	img := NewImage()
	copy(img.Pix, pix)
	return msgType, img, nil
}
