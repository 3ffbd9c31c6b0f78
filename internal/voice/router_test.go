package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voxgate/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Voices = config.VoicesConfig{
		Default: "Kore",
		Routes: []config.VoiceRoute{
			{Pattern: "narrator", Target: "Charon"},
			{Pattern: "warm-*", Target: "Sulafat"},
		},
	}
	return cfg
}

func TestResolve_ExactMatch(t *testing.T) {
	r := NewRouter(testConfig())
	assert.Equal(t, "Charon", r.Resolve("narrator"))
}

func TestResolve_GlobMatch(t *testing.T) {
	r := NewRouter(testConfig())
	assert.Equal(t, "Sulafat", r.Resolve("warm-female"))
	assert.Equal(t, "Sulafat", r.Resolve("warm-"))
}

func TestResolve_EmptySelectorGetsDefault(t *testing.T) {
	r := NewRouter(testConfig())
	assert.Equal(t, "Kore", r.Resolve(""))
}

func TestResolve_UnmatchedPassesThrough(t *testing.T) {
	r := NewRouter(testConfig())
	assert.Equal(t, "Puck", r.Resolve("Puck"))
}

func TestResolve_ExactWinsOverPattern(t *testing.T) {
	r := NewRouter(testConfig())
	r.AddRoute("warm-alto", "Vindemiatrix")
	assert.Equal(t, "Vindemiatrix", r.Resolve("warm-alto"))
}
