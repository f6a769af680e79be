// Package osc implements the Open Sound Control wire codec, its two TCP
// stream framings, and a reconnecting UDP/TCP transport with a bounded log.
// Decoded incoming messages are handed to Transport.OnMessage; routing them
// by path is done in internal/core.
package osc

// Timetag is an OSC NTP-style 64-bit timestamp, used verbatim (bundles
// carry one; this core does not interpret it beyond pass-through).
type Timetag uint64

// RGBA is a packed 32-bit color argument.
type RGBA uint32

// MIDI is a packed 4-byte MIDI message argument.
type MIDI [4]byte

// Infinitum is the zero-byte "positive infinity" argument type ('I').
type Infinitum struct{}

// Message is an OSC address plus its ordered, typed arguments. Supported Go
// types for Arguments: bool, int32, int64, float32, float64, string, []byte
// (blob), Timetag, RGBA, MIDI, nil (the Null/'N' type), Infinitum.
type Message struct {
	Address   string
	Arguments []interface{}
}

// Bundle is a timestamped group of OSC packets, each either a Message or a
// nested Bundle.
type Bundle struct {
	Timetag  Timetag
	Elements []interface{} // Message or *Bundle
}
