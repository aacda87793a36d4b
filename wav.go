package main

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wavFormatPCM is the WAVE_FORMAT_PCM audio format tag.
const wavFormatPCM = 1

// ReadWAV reads a 16-bit mono (or multi-channel, downmixed by dropping
// extra channels) PCM WAV file and returns its samples and sample rate.
//
// No third-party WAV library appears in the example pack, so this reader
// is hand-rolled per DESIGN.md; it only supports the subset of RIFF/WAVE
// this project produces and consumes (uncompressed 16-bit PCM).
func ReadWAV(r io.Reader) (samples []int16, sampleRate uint32, err error) {
	var riffHeader [12]byte
	if _, err := io.ReadFull(r, riffHeader[:]); err != nil {
		return nil, 0, fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(riffHeader[0:4]) != "RIFF" || string(riffHeader[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var numChannels uint16
	var bitsPerSample uint16
	var haveFmt bool

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("reading chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("reading fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			if audioFormat != wavFormatPCM {
				return nil, 0, fmt.Errorf("unsupported WAV audio format %d, want PCM", audioFormat)
			}
			numChannels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, 0, fmt.Errorf("data chunk before fmt chunk")
			}
			if bitsPerSample != 16 {
				return nil, 0, fmt.Errorf("unsupported bits per sample %d, want 16", bitsPerSample)
			}
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("reading data chunk: %w", err)
			}
			samples = decodeMonoPCM16(body, int(numChannels))

		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, 0, fmt.Errorf("skipping chunk %q: %w", chunkID, err)
			}
		}

		if chunkSize%2 == 1 {
			var pad [1]byte
			io.ReadFull(r, pad[:])
		}
	}

	if samples == nil {
		return nil, 0, fmt.Errorf("no data chunk found")
	}
	return samples, sampleRate, nil
}

// decodeMonoPCM16 reads interleaved little-endian PCM16 frames and keeps
// only the first channel of each frame.
func decodeMonoPCM16(body []byte, numChannels int) []int16 {
	if numChannels < 1 {
		numChannels = 1
	}
	frameBytes := 2 * numChannels
	numFrames := len(body) / frameBytes
	out := make([]int16, numFrames)
	for i := 0; i < numFrames; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(body[i*frameBytes:]))
	}
	return out
}

// WriteWAV writes mono 16-bit PCM samples as a RIFF/WAVE file.
func WriteWAV(w io.Writer, samples []int16, sampleRate uint32) error {
	const numChannels = 1
	const bitsPerSample = 16
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := uint16(numChannels * bitsPerSample / 8)
	dataSize := uint32(len(samples) * 2)

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataSize)
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, wavFormatPCM)
	buf = binary.LittleEndian.AppendUint16(buf, numChannels)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, dataSize)
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}

	_, err := w.Write(buf)
	return err
}
