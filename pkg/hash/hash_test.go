package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "how does it look", Normalize("  how   does\tit\nlook "))
	assert.Equal(t, "", Normalize("   \n\t "))
	assert.Equal(t, "already clean", Normalize("already clean"))
}

func TestInput_WhitespaceInsensitive(t *testing.T) {
	a := Input("analysis", "BTC", "how does it look?")
	b := Input("analysis", "BTC", "  how   does it look? ")
	assert.Equal(t, a, b)
}

func TestInput_DistinctInputsDistinctKeys(t *testing.T) {
	base := Input("analysis", "BTC", "how does it look?")
	assert.NotEqual(t, base, Input("analysis", "ETH", "how does it look?"))
	assert.NotEqual(t, base, Input("candles", "BTC", "how does it look?"))
	assert.NotEqual(t, base, Input("analysis", "BTC", "how does it look"))
}

func TestInput_PartBoundariesMatter(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	assert.NotEqual(t, Input("ab", "c"), Input("a", "bc"))
}

func TestContent_StableDigest(t *testing.T) {
	digest := Content([]byte("hello"))
	assert.Len(t, digest, 64)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", digest)
	assert.NotEqual(t, digest, Content([]byte("hello!")))
}
