package core

import (
	"strconv"
	"strings"

	"github.com/beatlight/core/internal/bpm"
	"github.com/beatlight/core/internal/osc"
)

// PresetLoader delegates preset file loading to the out-of-core-scope
// preset I/O collaborator (spec.md §4.11, §6): the dispatcher only knows
// the preset name from an incoming `/s2l/preset` message.
type PresetLoader interface {
	LoadPreset(name string) error
}

// SetPresetLoader attaches the collaborator used to resolve `/s2l/preset`
// messages. A nil loader makes `/s2l/preset` a no-op.
func (c *Core) SetPresetLoader(loader PresetLoader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presetLoader = loader
}

// HandleIncoming dispatches one decoded incoming OSC message by
// longest-matching path prefix (spec.md §4.11). Attach it to a transport
// via transport.OnMessage = core.HandleIncoming.
func (c *Core) HandleIncoming(msg osc.Message) {
	// Longer prefixes are listed before the shorter ones they extend.
	path := msg.Address
	switch {
	case strings.HasPrefix(path, "/s2l/enabled/toggle"):
		if truthy(msg.Arguments) {
			c.toggleEnabled()
		}
	case strings.HasPrefix(path, "/s2l/enabled"):
		c.setEnabled(truthy(msg.Arguments))
	case strings.HasPrefix(path, "/s2l/level_feedback/toggle"):
		if truthy(msg.Arguments) {
			c.toggleLevelFeedback()
		}
	case strings.HasPrefix(path, "/s2l/level_feedback"):
		c.setLevelFeedback(truthy(msg.Arguments))
	case strings.HasPrefix(path, "/s2l/preset"):
		c.handlePresetMessage(msg)
	case strings.HasPrefix(path, "/s2l/bpm/enabled/toggle"):
		if truthy(msg.Arguments) {
			c.toggleBPMActive()
		}
	case strings.HasPrefix(path, "/s2l/bpm/enabled"):
		c.setBPMActive(truthy(msg.Arguments))
	case strings.HasPrefix(path, "/s2l/bpm/range"):
		c.handleBPMRangeMessage(msg)
	case strings.HasPrefix(path, "/s2l/bpm/tap"):
		if len(msg.Arguments) == 0 || truthy(msg.Arguments) {
			c.tapBPM.Tap()
		}
	}
}

// truthy implements spec.md §4.11's argument truthiness rule: no args is
// true; bool is as-is; int is ==1; float is >0.99; anything else is false.
func truthy(args []interface{}) bool {
	if len(args) == 0 {
		return true
	}
	switch v := args[0].(type) {
	case bool:
		return v
	case int32:
		return v == 1
	case int64:
		return v == 1
	case float32:
		return float64(v) > 0.99
	case float64:
		return v > 0.99
	default:
		return false
	}
}

func (c *Core) toggleEnabled() {
	c.mu.Lock()
	c.oscEnabled = !c.oscEnabled
	enabled := c.oscEnabled
	c.mu.Unlock()
	c.emitEnabledState(enabled)
}

func (c *Core) setEnabled(v bool) {
	c.mu.Lock()
	c.oscEnabled = v
	c.mu.Unlock()
	c.emitEnabledState(v)
}

func (c *Core) emitEnabledState(enabled bool) {
	state := "0"
	if enabled {
		state = "1"
	}
	forcedTransmitter{transport: c.transport}.Send("/s2l/out/enabled=" + state)
}

func (c *Core) toggleLevelFeedback() {
	c.mu.Lock()
	c.levelFeedbackEnabled = !c.levelFeedbackEnabled
	v := c.levelFeedbackEnabled
	c.mu.Unlock()
	c.emitLevelFeedbackState(v)
}

func (c *Core) setLevelFeedback(v bool) {
	c.mu.Lock()
	c.levelFeedbackEnabled = v
	c.mu.Unlock()
	c.emitLevelFeedbackState(v)
}

func (c *Core) emitLevelFeedbackState(enabled bool) {
	state := "0"
	if enabled {
		state = "1"
	}
	forcedTransmitter{transport: c.transport}.Send("/s2l/out/level_feedback=" + state)
}

func (c *Core) toggleBPMActive() {
	c.mu.Lock()
	c.bpmActive = !c.bpmActive
	v := c.bpmActive
	c.mu.Unlock()
	c.emitBPMActiveState(v)
}

func (c *Core) setBPMActive(v bool) {
	c.mu.Lock()
	c.bpmActive = v
	c.mu.Unlock()
	c.emitBPMActiveState(v)
}

func (c *Core) emitBPMActiveState(enabled bool) {
	state := "0"
	if enabled {
		state = "1"
	}
	forcedTransmitter{transport: c.transport}.Send("/s2l/out/bpm/enabled=" + state)
}

func (c *Core) handlePresetMessage(msg osc.Message) {
	if len(msg.Arguments) != 1 {
		return
	}
	name, ok := msg.Arguments[0].(string)
	if !ok || name == "" {
		return
	}

	c.mu.Lock()
	loader := c.presetLoader
	c.mu.Unlock()

	if loader == nil {
		return
	}
	if err := loader.LoadPreset(name); err != nil {
		c.logger.Printf("[CORE] preset load failed for %q: %v", name, err)
		forcedTransmitter{transport: c.transport}.Send("/s2l/out/error=" + strings.ReplaceAll(err.Error(), ",", ";"))
		return
	}

	c.mu.Lock()
	c.activePreset = name
	c.mu.Unlock()
	forcedTransmitter{transport: c.transport}.Send("/s2l/out/active_preset=" + name)
}

func (c *Core) handleBPMRangeMessage(msg osc.Message) {
	if len(msg.Arguments) != 1 {
		return
	}
	var value int
	switch v := msg.Arguments[0].(type) {
	case int32:
		value = int(v)
	case int64:
		value = int(v)
	default:
		return
	}

	c.mu.Lock()
	c.continuousBPM.SetMinBPM(value)
	c.tapBPM.SetMinBPM(value)
	c.minBPM = bpm.QuantizeMinBPM(value)
	minBPM := c.minBPM
	c.mu.Unlock()

	forcedTransmitter{transport: c.transport}.Send("/s2l/out/bpm/range=" + strconv.Itoa(minBPM))
}

