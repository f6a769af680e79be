package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beatlight/core/internal/config"
	"github.com/beatlight/core/internal/osc"
)

func TestApplyConfigSetsNetworkGeneratorAndBPMState(t *testing.T) {
	c := New(Config{})

	cfg := config.DefaultConfig()
	cfg.Network.IP = "10.1.2.3"
	cfg.Network.TxPort = 9001
	cfg.Network.RxPort = 9000
	cfg.Network.UserNumber = "7"
	cfg.Network.Framing = "slip"
	cfg.Generators = map[string]config.GeneratorConfig{
		"bass": {Threshold: 0.6, OnDelay: 0.1, OffDelay: 0.2, MaxHold: 0, OnMessage: "/x/on"},
	}
	cfg.BPM.MinBPM = 100
	cfg.BPM.Mute = true
	cfg.BPM.Active = false
	cfg.BPM.Templates = []string{"/cue/go=<BPM>"}

	c.ApplyConfig(cfg)

	assert.Equal(t, "10.1.2.3", c.transport.IP)
	assert.Equal(t, 9001, c.transport.TxPort)
	assert.Equal(t, 9000, c.transport.RxPort)
	assert.Equal(t, "7", c.transport.UserNumber)
	assert.Equal(t, osc.FramingSLIP, c.transport.Framing)

	require.NotNil(t, c.generators[0])
	assert.Equal(t, "bass", c.generators[0].name)
	assert.Equal(t, 0.6, c.generators[0].gen.Threshold)
	assert.Equal(t, 0.1, c.generators[0].filter.OnDelay)
	assert.Equal(t, "/x/on", c.generators[0].gen.Params.OnMessage)

	assert.True(t, c.bpmController.Mute)
	require.Len(t, c.bpmController.Templates, 1)
	assert.Equal(t, "/cue/go=<BPM>", c.bpmController.Templates[0].Template)
	assert.Equal(t, 100, c.minBPM)
	assert.False(t, c.bpmActive)
}
