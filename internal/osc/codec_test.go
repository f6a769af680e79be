package osc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestEncodeMessageExactBytes(t *testing.T) {
	// /foo=1,2.5,hi from MessageFromString, scenario S4.
	msg := MessageFromString("/foo=1,2.5,hi")
	require.Equal(t, "/foo", msg.Address)
	require.Equal(t, []interface{}{int32(1), float32(2.5), "hi"}, msg.Arguments)

	data, err := EncodeMessage(msg)
	require.NoError(t, err)

	want := []byte("/foo\x00\x00\x00\x00,isf\x00\x00\x00\x00")
	want = append(want, 0x00, 0x00, 0x00, 0x01) // int32 1
	want = append(want, 0x40, 0x20, 0x00, 0x00) // float32 2.5
	want = append(want, 'h', 'i', 0x00, 0x00)
	assert.Equal(t, want, data)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg.Address, decoded.Address)
	assert.Equal(t, msg.Arguments, decoded.Arguments)
}

func TestDecodeMessageRejectsBadTagString(t *testing.T) {
	data, err := EncodeMessage(Message{Address: "/x"})
	require.NoError(t, err)
	// Corrupt the tag string's leading comma.
	data[4] = 'z'
	_, err = DecodeMessage(data)
	assert.Error(t, err)
}

func TestDecodeMessageRejectsTruncatedArgument(t *testing.T) {
	data, err := EncodeMessage(Message{Address: "/x", Arguments: []interface{}{int32(7)}})
	require.NoError(t, err)
	truncated := data[:len(data)-2]
	_, err = DecodeMessage(truncated)
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDecodeMessageUnknownTypeTagErrors(t *testing.T) {
	data, err := EncodeMessage(Message{Address: "/x"})
	require.NoError(t, err)
	tagOffset := padLen(len("/x") + 1)
	data[tagOffset] = ','
	data[tagOffset+1] = 'Z'
	_, err = DecodeMessage(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedArgument)
}

func TestEncodeMessageUnsupportedArgument(t *testing.T) {
	_, err := EncodeMessage(Message{Address: "/x", Arguments: []interface{}{complex64(1)}})
	assert.ErrorIs(t, err, ErrUnsupportedArgument)
}

// genArgument draws one supported OSC argument value per rapid.Custom.
func genArgument(t *rapid.T) interface{} {
	switch rapid.IntRange(0, 9).Draw(t, "kind") {
	case 0:
		return rapid.Bool().Draw(t, "bool")
	case 1:
		return nil
	case 2:
		return Infinitum{}
	case 3:
		return rapid.Int32().Draw(t, "int32")
	case 4:
		return rapid.Int64().Draw(t, "int64")
	case 5:
		return rapid.Float32().Draw(t, "float32")
	case 6:
		return rapid.Float64().Draw(t, "float64")
	case 7:
		return rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`).Draw(t, "string")
	case 8:
		return Timetag(rapid.Uint64().Draw(t, "timetag"))
	default:
		n := rapid.IntRange(0, 8).Draw(t, "bloblen")
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(rapid.IntRange(0, 255).Draw(t, "blobbyte"))
		}
		return b
	}
}

// TestPropertyCodecRoundTrip is property 8: decode(encode(M)) == M for every
// message built from supported argument types.
func TestPropertyCodecRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		addr := "/" + rapid.StringMatching(`[a-z]{1,8}(/[a-z]{1,8}){0,2}`).Draw(rt, "addr")
		n := rapid.IntRange(0, 6).Draw(rt, "argc")
		args := make([]interface{}, n)
		for i := range args {
			args[i] = genArgument(rt)
		}
		msg := Message{Address: addr, Arguments: args}

		data, err := EncodeMessage(msg)
		require.NoError(rt, err)

		decoded, err := DecodeMessage(data)
		require.NoError(rt, err)
		require.Equal(rt, msg.Address, decoded.Address)
		require.Equal(rt, len(msg.Arguments), len(decoded.Arguments))
		for i := range msg.Arguments {
			require.Equal(rt, msg.Arguments[i], decoded.Arguments[i])
		}
	})
}

func TestBundleRoundTripNested(t *testing.T) {
	inner := Bundle{
		Timetag: Timetag(42),
		Elements: []interface{}{
			Message{Address: "/a", Arguments: []interface{}{int32(1)}},
		},
	}
	outer := Bundle{
		Timetag: Timetag(7),
		Elements: []interface{}{
			Message{Address: "/b", Arguments: []interface{}{"hi"}},
			&inner,
		},
	}

	data, err := EncodeBundle(outer)
	require.NoError(t, err)
	require.True(t, IsBundle(data))

	decoded, err := DecodeBundle(data)
	require.NoError(t, err)
	require.Equal(t, outer.Timetag, decoded.Timetag)
	require.Len(t, decoded.Elements, 2)

	msg, ok := decoded.Elements[0].(Message)
	require.True(t, ok)
	assert.Equal(t, "/b", msg.Address)

	nested, ok := decoded.Elements[1].(*Bundle)
	require.True(t, ok)
	assert.Equal(t, Timetag(42), nested.Timetag)
	require.Len(t, nested.Elements, 1)
}

func TestDecodeBundleRejectsOversizedElement(t *testing.T) {
	data, err := EncodeBundle(Bundle{Elements: []interface{}{
		Message{Address: "/a"},
	}})
	require.NoError(t, err)
	// Inflate the declared element size past the remaining buffer.
	data[16] = 0x7F
	_, err = DecodeBundle(data)
	assert.Error(t, err)
}

func TestMessageFromStringNoArgs(t *testing.T) {
	msg := MessageFromString("/s2l/enabled")
	assert.Equal(t, "/s2l/enabled", msg.Address)
	assert.Nil(t, msg.Arguments)
}

func TestMessageFromStringNegativeAndSigned(t *testing.T) {
	msg := MessageFromString("/x=-3,+2.5,-0.5")
	require.Equal(t, []interface{}{int32(-3), float32(2.5), float32(-0.5)}, msg.Arguments)
}
