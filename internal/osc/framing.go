package osc

import "encoding/binary"

// FramingMode selects one of the two TCP stream framings spec.md §4.9
// describes.
type FramingMode int

const (
	// FramingLengthPrefix is OSC-over-TCP 1.0: a 4-byte big-endian size
	// prefix followed by the packet.
	FramingLengthPrefix FramingMode = iota
	// FramingSLIP is OSC-over-TCP 1.1: packets bracketed by SLIP END bytes
	// with END/ESC byte stuffing.
	FramingSLIP
)

// Incoming length-prefix values must fall in (0, maxIncomingFrameSize];
// outgoing frames are allowed up to the much larger maxOutgoingFrameSize.
// The asymmetry is preserved from the original implementation (see
// DESIGN.md's Open Question (a)).
const (
	maxIncomingFrameSize = 512
	maxOutgoingFrameSize = 524288
)

// EncodeLengthPrefixed prepends a 4-byte big-endian size to packet. It
// returns an error if packet exceeds the outgoing size bound.
func EncodeLengthPrefixed(packet []byte) ([]byte, error) {
	if len(packet) > maxOutgoingFrameSize {
		return nil, ErrMalformedPacket
	}
	out := make([]byte, 4+len(packet))
	binary.BigEndian.PutUint32(out, uint32(len(packet)))
	copy(out[4:], packet)
	return out, nil
}

// LengthPrefixDecoder incrementally reassembles length-prefixed packets
// from a byte stream (e.g. successive TCP reads).
type LengthPrefixDecoder struct {
	buf []byte
}

// Feed appends newly read bytes and returns any complete packets found.
// An invalid size (<=0 or > the incoming bound) discards the accumulated
// buffer and is reported once via onError, mirroring the "full drain on
// invalid size" resync policy in spec.md §7.
func (d *LengthPrefixDecoder) Feed(data []byte, onError func(error)) [][]byte {
	d.buf = append(d.buf, data...)
	var packets [][]byte

	for {
		if len(d.buf) < 4 {
			return packets
		}
		size := int(int32(binary.BigEndian.Uint32(d.buf[:4])))
		if size <= 0 || size > maxIncomingFrameSize {
			if onError != nil {
				onError(ErrMalformedPacket)
			}
			d.buf = nil
			return packets
		}
		if len(d.buf) < 4+size {
			return packets
		}
		packets = append(packets, append([]byte(nil), d.buf[4:4+size]...))
		d.buf = d.buf[4+size:]
	}
}

const (
	slipEnd    byte = 0xC0
	slipEsc    byte = 0xDB
	slipEscEnd byte = 0xDC
	slipEscEsc byte = 0xDD
)

// EncodeSLIP brackets packet with END bytes and escapes any embedded END or
// ESC bytes.
func EncodeSLIP(packet []byte) []byte {
	out := make([]byte, 0, len(packet)+4)
	out = append(out, slipEnd)
	for _, b := range packet {
		switch b {
		case slipEnd:
			out = append(out, slipEsc, slipEscEnd)
		case slipEsc:
			out = append(out, slipEsc, slipEscEsc)
		default:
			out = append(out, b)
		}
	}
	out = append(out, slipEnd)
	return out
}

// SLIPDecoder incrementally reassembles SLIP-framed packets from a byte
// stream, discarding bytes before the first frame-start END as required by
// the resync policy.
type SLIPDecoder struct {
	inFrame bool
	escape  bool
	current []byte
}

// Feed appends newly read bytes and returns any complete decoded packets.
func (d *SLIPDecoder) Feed(data []byte) [][]byte {
	var packets [][]byte
	for _, b := range data {
		switch {
		case b == slipEnd:
			if d.inFrame && len(d.current) > 0 {
				packets = append(packets, d.current)
			}
			d.current = nil
			d.inFrame = true
			d.escape = false
		case !d.inFrame:
			// discard bytes until a frame-start END
		case d.escape:
			switch b {
			case slipEscEnd:
				d.current = append(d.current, slipEnd)
			case slipEscEsc:
				d.current = append(d.current, slipEsc)
			default:
				d.current = append(d.current, b)
			}
			d.escape = false
		case b == slipEsc:
			d.escape = true
		default:
			d.current = append(d.current, b)
		}
	}
	return packets
}
