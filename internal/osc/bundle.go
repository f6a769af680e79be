package osc

import "encoding/binary"

const bundleTag = "#bundle\x00"

// IsBundle reports whether data begins with the bundle literal.
func IsBundle(data []byte) bool {
	return len(data) >= 8 && string(data[:8]) == bundleTag
}

// EncodeBundle serializes a Bundle, recursively encoding nested bundles and
// messages as (i32 size, element) records.
func EncodeBundle(b Bundle) ([]byte, error) {
	out := make([]byte, 0, 64)
	out = append(out, bundleTag...)
	var tt [8]byte
	binary.BigEndian.PutUint64(tt[:], uint64(b.Timetag))
	out = append(out, tt[:]...)

	for _, el := range b.Elements {
		var payload []byte
		var err error
		switch v := el.(type) {
		case Message:
			payload, err = EncodeMessage(v)
		case *Bundle:
			payload, err = EncodeBundle(*v)
		case Bundle:
			payload, err = EncodeBundle(v)
		default:
			err = ErrUnsupportedArgument
		}
		if err != nil {
			return nil, err
		}
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(payload)))
		out = append(out, size[:]...)
		out = append(out, payload...)
	}
	return out, nil
}

// ErrBundleMalformed is returned when a nested element's declared size
// exceeds the remaining bytes in the bundle.
var ErrBundleMalformed = errBundleMalformed{}

type errBundleMalformed struct{}

func (errBundleMalformed) Error() string { return "osc: bundle element size exceeds remainder" }

// DecodeBundle parses a bundle, decoding nested elements using the length-
// prefix (1.0) size framing regardless of the outer transport's framing
// mode, per spec.md §4.10.
func DecodeBundle(data []byte) (Bundle, error) {
	if !IsBundle(data) {
		return Bundle{}, ErrMalformedPacket
	}
	b := Bundle{Timetag: Timetag(binary.BigEndian.Uint64(data[8:16]))}
	offset := 16
	for offset < len(data) {
		if offset+4 > len(data) {
			return Bundle{}, ErrBundleMalformed
		}
		size := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if size < 0 || offset+size > len(data) {
			return Bundle{}, ErrBundleMalformed
		}
		elData := data[offset : offset+size]
		offset += size

		if IsBundle(elData) {
			nested, err := DecodeBundle(elData)
			if err != nil {
				return Bundle{}, err
			}
			b.Elements = append(b.Elements, &nested)
		} else {
			msg, err := DecodeMessage(elData)
			if err != nil {
				return Bundle{}, err
			}
			b.Elements = append(b.Elements, msg)
		}
	}
	return b, nil
}
