package core

import (
	"github.com/beatlight/core/internal/bpm"
	"github.com/beatlight/core/internal/config"
	"github.com/beatlight/core/internal/osc"
)

// ApplyConfig pushes a loaded configuration into the transport, generator
// overrides, and BPM settings. The daemon calls it once at startup, after
// New; it has no config-reload path.
func (c *Core) ApplyConfig(cfg *config.Config) {
	c.applyNetworkConfig(cfg.Network)

	c.mu.Lock()
	for name, override := range cfg.Generators {
		applyGeneratorOverride(c.generators, name, override)
	}

	c.bpmController.Mute = cfg.BPM.Mute
	c.bpmController.Templates = make([]bpm.MessageTemplate, 0, len(cfg.BPM.Templates))
	for _, t := range cfg.BPM.Templates {
		c.bpmController.Templates = append(c.bpmController.Templates, bpm.MessageTemplate{Template: t})
	}

	c.continuousBPM.SetMinBPM(cfg.BPM.MinBPM)
	c.tapBPM.SetMinBPM(cfg.BPM.MinBPM)
	c.minBPM = bpm.QuantizeMinBPM(cfg.BPM.MinBPM)
	c.bpmActive = cfg.BPM.Active
	c.mu.Unlock()
}

func (c *Core) applyNetworkConfig(n config.NetworkConfig) {
	t := c.transport
	t.IP = n.IP
	t.TxPort = n.TxPort
	t.RxPort = n.RxPort
	t.TCPPort = n.TCPPort
	t.UserNumber = n.UserNumber
	t.Enabled = n.Enabled
	if n.Framing == "slip" {
		t.Framing = osc.FramingSLIP
	} else {
		t.Framing = osc.FramingLengthPrefix
	}
	if n.UseTCP {
		t.SetUseTCP(true)
	}
}

func applyGeneratorOverride(gens []*namedGenerator, name string, gc config.GeneratorConfig) {
	for _, ng := range gens {
		if ng.name != name {
			continue
		}
		ng.gen.Threshold = gc.Threshold
		ng.gen.Invert = gc.Invert
		ng.filter.OnDelay = gc.OnDelay
		ng.filter.OffDelay = gc.OffDelay
		ng.filter.MaxHold = gc.MaxHold
		if gc.OnMessage != "" {
			ng.gen.Params.OnMessage = gc.OnMessage
		}
		if gc.OffMessage != "" {
			ng.gen.Params.OffMessage = gc.OffMessage
		}
		if gc.LevelMessage != "" {
			ng.gen.Params.LevelMessage = gc.LevelMessage
		}
		ng.gen.Params.MinLevel = gc.MinLevel
		ng.gen.Params.MaxLevel = gc.MaxLevel
		return
	}
}
