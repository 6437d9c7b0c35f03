package showdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsernameColorDeterministic(t *testing.T) {
	h1, s1, l1 := UsernameColor("Some User")
	h2, s2, l2 := UsernameColor("someuser")

	// 颜色由规范化 ID 派生，大小写与标点不影响结果
	assert.Equal(t, h1, h2)
	assert.Equal(t, s1, s2)
	assert.Equal(t, l1, l2)
}

func TestUsernameColorRanges(t *testing.T) {
	for _, name := range []string{"alice", "bob", "zarel", "testbot", "x"} {
		h, s, _ := UsernameColor(name)
		assert.GreaterOrEqual(t, h, 0.0, "hue of %q", name)
		assert.Less(t, h, 360.0, "hue of %q", name)
		assert.GreaterOrEqual(t, s, 40.0, "saturation of %q", name)
		assert.Less(t, s, 90.0, "saturation of %q", name)
	}
}

func TestHSLToRGB(t *testing.T) {
	r, g, b := hslToRGB(0, 0, 50)
	assert.InDelta(t, 0.5, r, 1e-9)
	assert.InDelta(t, 0.5, g, 1e-9)
	assert.InDelta(t, 0.5, b, 1e-9)

	r, g, b = hslToRGB(0, 100, 50)
	assert.InDelta(t, 1.0, r, 1e-9)
	assert.InDelta(t, 0.0, g, 1e-9)
	assert.InDelta(t, 0.0, b, 1e-9)

	r, g, b = hslToRGB(120, 100, 50)
	assert.InDelta(t, 0.0, r, 1e-9)
	assert.InDelta(t, 1.0, g, 1e-9)
	assert.InDelta(t, 0.0, b, 1e-9)
}
