package bpm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Transmitter is the minimal OSC send surface the BPM controller needs.
type Transmitter interface {
	Send(message string)
}

// MessageTemplate is one user-configured OSC message that should be sent
// whenever a new tempo is accepted, with <BPM...> tokens substituted.
type MessageTemplate struct {
	Template string
}

// OscController holds the user-defined BPM message templates and performs
// the token substitution described by spec.md §4.8, grounded on
// BPMOscControler.cpp's transmitBPM.
type OscController struct {
	Templates []MessageTemplate
	Mute      bool

	osc Transmitter

	// forcedOsc sends the always-on `/s2l/out/bpm=` info message, bypassing
	// the OSC-enabled gate the way BPMOscControler::transmitBPM's
	// "sendMessage(..., true)" call does. Defaults to osc when unset.
	forcedOsc Transmitter
}

// NewOscController returns a controller that sends through osc.
func NewOscController(osc Transmitter) *OscController {
	return &OscController{osc: osc}
}

// SetForcedTransmitter attaches the transmitter used for the info message
// that must reach the console even while OSC output is disabled.
func (c *OscController) SetForcedTransmitter(forced Transmitter) {
	c.forcedOsc = forced
}

// TransmitBPM substitutes tokens in every configured template containing
// "<BPM" and sends it, then always emits the /s2l/out/bpm= info message
// regardless of mute, forced past the OSC-enabled gate.
func (c *OscController) TransmitBPM(bpm float64) {
	if !c.Mute {
		for _, tmpl := range c.Templates {
			if strings.Contains(tmpl.Template, "<BPM") {
				msg := substituteTokens(tmpl.Template, bpm)
				if c.osc != nil {
					c.osc.Send(msg)
				}
			}
		}
	}

	info := fmt.Sprintf("/s2l/out/bpm=%s", strconv.FormatInt(roundBPM(bpm), 10))
	forced := c.forcedOsc
	if forced == nil {
		forced = c.osc
	}
	if forced != nil {
		forced.Send(info)
	}
}

// SetMute toggles mute and echoes the mute-state message.
func (c *OscController) SetMute(mute bool) {
	c.Mute = mute
	if c.osc != nil {
		state := "0"
		if mute {
			state = "1"
		}
		c.osc.Send("/s2l/out/bpm/mute=" + state)
	}
}

var bpmTokens = []struct {
	token  string
	factor float64
}{
	{"<BPM1-2>", 1.0 / 2},
	{"<BPM1-4>", 1.0 / 4},
	{"<BPM1-8>", 1.0 / 8},
	{"<BPM1-16>", 1.0 / 16},
	{"<BPM1-32>", 1.0 / 32},
	{"<BPM2>", 2},
	{"<BPM4>", 4},
	{"<BPM8>", 8},
	{"<BPM16>", 16},
	{"<BPM32>", 32},
	{"<BPM1>", 1},
	{"<BPM>", 1},
}

// substituteTokens replaces every recognized <BPM...> token with the
// rounded, zero-padded decimal value of bpm scaled by that token's factor.
// Longer/more specific tokens are matched first so e.g. <BPM1-2> isn't
// shadowed by a naive <BPM> replacement.
func substituteTokens(template string, bpm float64) string {
	out := template
	for _, tok := range bpmTokens {
		if strings.Contains(out, tok.token) {
			out = strings.ReplaceAll(out, tok.token, formatToken(bpm*tok.factor, 1))
		}
	}
	return out
}

// formatToken rounds v to the nearest integer and formats it with a leading
// zero, because some consoles drop a leading single digit. Only the
// user-configured `<BPM...>` templates get this padding; the `/s2l/out/bpm=`
// info message does not (see roundBPM).
func formatToken(v float64, _ int) string {
	return fmt.Sprintf("0%d", roundBPM(v))
}

// roundBPM rounds v to the nearest non-negative integer.
func roundBPM(v float64) int64 {
	rounded := int64(math.Round(v))
	if rounded < 0 {
		rounded = 0
	}
	return rounded
}
