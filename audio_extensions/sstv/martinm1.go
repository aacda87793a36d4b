package sstv

/*
 * Martin M1 SSTV codec.
 *
 * Encoder: raster -> Signal (frequency timeline), per spec.md §4.4.2.
 * Decoder: streaming, resumable frequency-timeline -> image state machine,
 * per spec.md §4.4.3/§4.4.4. Grounded on original_source/src/martinm1.rs
 * for exact arithmetic; the teacher's audio_extensions/sstv/decoder.go
 * supplied the Go method-per-phase shape this was rewritten into (its
 * goroutine/channel orchestration itself was not kept — see DESIGN.md).
 */

const (
	freqLeader    = 1900
	freqBreak     = 1200
	freqVISFrame  = 1200 // start/stop bit and sync tone
	freqVISOne    = 1100
	freqVISZero   = 1300
	freqSeparator = 1500

	durLeaderUs    = 300_000
	durBreakUs     = 10_000
	durVISBitUs    = 30_000
	durSyncUs      = 4_862
	durSeparatorUs = 572
	durPixelUs     = 457.6
	durTrailerUs   = 100_000

	pixelFreqFloor = 1500
	pixelFreqRange = 800 // 2300 - 1500

	numChannels = 3
)

// visBits is the Martin M1 VIS code pushed in time order: 6 data bits
// followed by a parity bit, per spec.md §4.4.1.
var visBits = [7]bool{true, false, true, true, false, false, true}

// channelOrder is the per-row emission/decode order: G, B, R.
var channelOrder = [numChannels]int{1, 2, 0}

// SourceImage is an arbitrary-size RGB raster supplied to Encode. It is the
// boundary type between the core and an external image-decoding
// collaborator (PNG/JPEG decode is explicitly out of the core's scope —
// spec.md §1).
type SourceImage struct {
	Width, Height int
	Pix           []uint8 // row-major, 3 bytes (R,G,B) per pixel
}

// At returns the RGB triple at (x, y).
func (s *SourceImage) At(x, y int) (r, g, b uint8) {
	i := (y*s.Width + x) * 3
	return s.Pix[i], s.Pix[i+1], s.Pix[i+2]
}

// DecodeState is the three-valued outcome of a Decode call (spec.md §7).
type DecodeState int

const (
	NoneFound DecodeState = iota
	Partial
	Finished
)

// DecodeResult is what Decode returns: the outcome plus, for Partial and
// Finished, an independent snapshot of the image decoded so far.
type DecodeResult struct {
	State DecodeState
	Image *Image
}

// MartinM1 is the Martin M1 mode codec: Encode is a pure function of its
// input image, Decode is a stateful, resumable streaming parser. See
// spec.md §3 "Codec state (Martin M1)" for the field lifecycle table.
type MartinM1 struct {
	image     *Image
	samples   []float32
	inHeader  bool
	cursorPos int
	nextRow   int
}

// NewMartinM1 constructs a codec with a fresh black image and the decoder
// state machine positioned before the calibration header.
func NewMartinM1() *MartinM1 {
	return &MartinM1{
		image:    NewImage(),
		inHeader: true,
	}
}

// Image returns a snapshot of the currently decoded raster.
func (m *MartinM1) Image() *Image {
	return m.image.Clone()
}

// Encode resamples src to 320x256 (nearest-neighbour) and renders the
// complete Martin M1 transmission: leader/break/leader, VIS, 256 scanlines
// of sync+separator+GBR pixel data, a 0 Hz trailer. The encoder never
// fails (spec.md §4.1/§7).
func (m *MartinM1) Encode(src *SourceImage) *Signal {
	out := NewSignal()

	out.Push(freqLeader, durLeaderUs)
	out.Push(freqBreak, durBreakUs)
	out.Push(freqLeader, durLeaderUs)

	out.Push(freqVISFrame, durVISBitUs) // start bit
	for _, bit := range visBits {
		out.Push(visTone(bit), durVISBitUs)
	}
	out.Push(freqVISFrame, durVISBitUs) // stop bit

	for i := 0; i < ImageHeight; i++ {
		out.Push(freqVISFrame, durSyncUs)
		out.Push(freqSeparator, durSeparatorUs)

		srcY := i * src.Height / ImageHeight
		for _, channel := range channelOrder {
			for j := 0; j < ImageWidth; j++ {
				srcX := j * src.Width / ImageWidth
				r, g, b := src.At(srcX, srcY)
				value := []uint8{r, g, b}[channel]

				freq := pixelFreqFloor + uint(float64(value)/255*pixelFreqRange)
				out.Push(freq, durPixelUs)
			}
			out.Push(freqSeparator, durSeparatorUs)
		}
	}

	out.Push(0, durTrailerUs)

	return out
}

func visTone(bit bool) uint {
	if bit {
		return freqVISOne
	}
	return freqVISZero
}

// Decode appends chunk to the codec's sample buffer, recomputes the DSP
// front-end over the entire buffer, and advances the decode state machine
// as far as the available samples allow. See spec.md §4.4.3.
func (m *MartinM1) Decode(chunk []float32) DecodeResult {
	m.samples = append(m.samples, chunk...)

	timeline := demodulate(m.samples)
	cur := newCursor(timeline)
	cur.seekTo(m.cursorPos)

	if m.inHeader {
		if !m.recognizeHeader(cur) {
			return DecodeResult{State: NoneFound}
		}
		m.inHeader = false
		m.cursorPos = cur.position()
	}

	for i := m.nextRow; i < ImageHeight; i++ {
		rowStart := cur.position()

		if !cur.advanceUntilNear(freqVISFrame) ||
			!cur.advanceWhileNear(freqVISFrame) ||
			!consumeOK(cur, durSeparatorUs) {
			return m.partial(rowStart, i)
		}

		for _, channel := range channelOrder {
			for j := 0; j < ImageWidth; j++ {
				v, ok := cur.consumeUs(durPixelUs)
				if !ok {
					return m.partial(rowStart, i)
				}
				brightness := (v - pixelFreqFloor) / pixelFreqRange
				m.image.SetChannel(j, i, channel, brightness*255)
			}
			if !consumeOK(cur, durSeparatorUs) {
				return m.partial(rowStart, i)
			}
		}
	}

	m.nextRow = ImageHeight
	return DecodeResult{State: Finished, Image: m.image.Clone()}
}

func (m *MartinM1) partial(rowStart, row int) DecodeResult {
	m.cursorPos = rowStart
	m.nextRow = row
	return DecodeResult{State: Partial, Image: m.image.Clone()}
}

func consumeOK(cur *cursor, durationUs float64) bool {
	_, ok := cur.consumeUs(durationUs)
	return ok
}

// recognizeHeader locates the Martin M1 calibration header: two 1900Hz
// leaders separated by a 1200Hz break, then 7 VIS bits and a stop bit.
// The 7th bit is parity and is read but never checked (spec.md §4.4.4,
// §9 "Parity bit").
func (m *MartinM1) recognizeHeader(cur *cursor) bool {
	if !cur.advanceUntilNear(freqLeader) || !cur.advanceWhileNear(freqLeader) {
		return false
	}
	if !cur.advanceUntilNear(freqBreak) {
		return false
	}
	if !cur.advanceUntilNear(freqLeader) || !cur.advanceWhileNear(freqLeader) {
		return false
	}

	var bits [6]bool
	for k := 0; k < 6; k++ {
		v, ok := cur.consumeUs(durVISBitUs)
		if !ok {
			return false
		}
		bits[k] = v < freqVISFrame
	}

	if _, ok := cur.consumeUs(durVISBitUs); !ok { // parity, discarded
		return false
	}

	if !cur.advanceWhileNear(freqBreak) {
		return false
	}

	_ = visCodeFromBits(bits) // computed per spec.md §4.4.4; unused by a
	// single-mode codec that never branches on it (see Design Notes §9
	// "Absence of dynamic dispatch").

	return true
}

// visCodeFromBits packs the 6 decoded data bits MSB-first at weight
// 2^(6-k), matching spec.md's stated (and deliberately not "corrected")
// decoder convention. See SPEC_FULL.md §9 / DESIGN.md Open Question 1.
func visCodeFromBits(bits [6]bool) uint8 {
	var total uint8
	for k, bit := range bits {
		if bit {
			total += 1 << uint(6-k)
		}
	}
	return total
}
