package osc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPacket is returned for any packet that cannot be parsed as a
// valid OSC message (bad padding, truncated arguments, missing ',' in the
// type-tag string). An unknown type tag is reported as ErrUnsupportedArgument.
var ErrMalformedPacket = errors.New("osc: malformed packet")

// ErrUnsupportedArgument is returned when encoding encounters a Go value
// with no corresponding OSC type tag, and when decoding meets an unknown
// type tag.
var ErrUnsupportedArgument = errors.New("osc: unsupported argument type")

// padLen returns n rounded up to the next multiple of 4.
func padLen(n int) int {
	return (n + 4) & ^3
}

func writePaddedString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// readPaddedString reads a NUL-terminated, NUL-padded-to-4 string starting
// at offset, returning the string and the offset just past its padding.
func readPaddedString(data []byte, offset int) (string, int, error) {
	end := offset
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) {
		return "", 0, ErrMalformedPacket
	}
	s := string(data[offset:end])
	strLenWithNul := end - offset + 1
	padded := strLenWithNul
	for padded%4 != 0 {
		padded++
	}
	next := offset + padded
	if next > len(data) {
		return "", 0, ErrMalformedPacket
	}
	return s, next, nil
}

// EncodeMessage serializes a Message into its OSC wire representation.
func EncodeMessage(m Message) ([]byte, error) {
	out := make([]byte, 0, 32)
	out = writePaddedString(out, m.Address)

	tags := []byte{','}
	argBytes := make([]byte, 0, 32)

	for _, arg := range m.Arguments {
		switch v := arg.(type) {
		case bool:
			if v {
				tags = append(tags, 'T')
			} else {
				tags = append(tags, 'F')
			}
		case nil:
			tags = append(tags, 'N')
		case Infinitum:
			tags = append(tags, 'I')
		case int32:
			tags = append(tags, 'i')
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(v))
			argBytes = append(argBytes, b[:]...)
		case int64:
			tags = append(tags, 'h')
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(v))
			argBytes = append(argBytes, b[:]...)
		case float32:
			tags = append(tags, 'f')
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
			argBytes = append(argBytes, b[:]...)
		case float64:
			tags = append(tags, 'd')
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
			argBytes = append(argBytes, b[:]...)
		case string:
			tags = append(tags, 's')
			argBytes = writePaddedString(argBytes, v)
		case []byte:
			tags = append(tags, 'b')
			var lb [4]byte
			binary.BigEndian.PutUint32(lb[:], uint32(len(v)))
			argBytes = append(argBytes, lb[:]...)
			argBytes = append(argBytes, v...)
			for len(argBytes)%4 != 0 {
				argBytes = append(argBytes, 0)
			}
		case Timetag:
			tags = append(tags, 't')
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(v))
			argBytes = append(argBytes, b[:]...)
		case RGBA:
			tags = append(tags, 'r')
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(v))
			argBytes = append(argBytes, b[:]...)
		case MIDI:
			tags = append(tags, 'm')
			argBytes = append(argBytes, v[:]...)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedArgument, arg)
		}
	}

	out = writePaddedString(out, string(tags))
	out = append(out, argBytes...)
	return out, nil
}

// DecodeMessage parses an OSC wire message. It never panics on malformed
// input; failures return ErrMalformedPacket, or an ErrUnsupportedArgument-
// wrapped error for an unknown type tag.
func DecodeMessage(data []byte) (Message, error) {
	addr, offset, err := readPaddedString(data, 0)
	if err != nil {
		return Message{}, err
	}
	tagStr, offset, err := readPaddedString(data, offset)
	if err != nil {
		return Message{}, err
	}
	if len(tagStr) == 0 || tagStr[0] != ',' {
		return Message{}, ErrMalformedPacket
	}

	msg := Message{Address: addr}

	for _, tag := range tagStr[1:] {
		switch tag {
		case 'T':
			msg.Arguments = append(msg.Arguments, true)
		case 'F':
			msg.Arguments = append(msg.Arguments, false)
		case 'N':
			msg.Arguments = append(msg.Arguments, nil)
		case 'I':
			msg.Arguments = append(msg.Arguments, Infinitum{})
		case 'c', 'i':
			if offset+4 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			v := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
			msg.Arguments = append(msg.Arguments, v)
			offset += 4
		case 'h':
			if offset+8 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			v := int64(binary.BigEndian.Uint64(data[offset : offset+8]))
			msg.Arguments = append(msg.Arguments, v)
			offset += 8
		case 'f':
			if offset+4 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			v := math.Float32frombits(binary.BigEndian.Uint32(data[offset : offset+4]))
			msg.Arguments = append(msg.Arguments, v)
			offset += 4
		case 'd':
			if offset+8 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			v := math.Float64frombits(binary.BigEndian.Uint64(data[offset : offset+8]))
			msg.Arguments = append(msg.Arguments, v)
			offset += 8
		case 's':
			var s string
			s, offset, err = readPaddedString(data, offset)
			if err != nil {
				return Message{}, err
			}
			msg.Arguments = append(msg.Arguments, s)
		case 'b':
			if offset+4 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
			offset += 4
			if n < 0 || offset+n > len(data) {
				return Message{}, ErrMalformedPacket
			}
			blob := make([]byte, n)
			copy(blob, data[offset:offset+n])
			offset += n
			for offset%4 != 0 {
				offset++
			}
			msg.Arguments = append(msg.Arguments, blob)
		case 't':
			if offset+8 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			v := Timetag(binary.BigEndian.Uint64(data[offset : offset+8]))
			msg.Arguments = append(msg.Arguments, v)
			offset += 8
		case 'r':
			if offset+4 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			v := RGBA(binary.BigEndian.Uint32(data[offset : offset+4]))
			msg.Arguments = append(msg.Arguments, v)
			offset += 4
		case 'm':
			if offset+4 > len(data) {
				return Message{}, ErrMalformedPacket
			}
			var v MIDI
			copy(v[:], data[offset:offset+4])
			msg.Arguments = append(msg.Arguments, v)
			offset += 4
		default:
			return Message{}, fmt.Errorf("%w: unknown type tag %q", ErrUnsupportedArgument, tag)
		}
	}

	return msg, nil
}
