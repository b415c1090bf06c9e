package namespace

import (
	"fmt"
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInoDeterministic(t *testing.T) {
	assert.Equal(t, Ino("proc", "42", "status"), Ino("proc", "42", "status"))
	assert.Equal(t, Ino("rootdir", "uptime"), Ino("rootdir", "uptime"))
}

func TestInoDistinguishesProviderAndName(t *testing.T) {
	assert.NotEqual(t, Ino("proc", "stat"), Ino("rootdir", "stat"))
	assert.NotEqual(t, Ino("proc", "1"), Ino("proc", "12"))

	// The separator keeps component boundaries significant.
	assert.NotEqual(t, Ino("proc", "12"), Ino("proc", "1", "2"))
}

func TestInoNeverCollidesWithReservedRoot(t *testing.T) {
	for pid := 0; pid < 4096; pid++ {
		name := fmt.Sprintf("%d", pid)
		assert.NotEqual(t, uint64(RootIno), Ino("proc", name))
		assert.GreaterOrEqual(t, Ino("proc", name), uint64(16))
	}
}

// rawIno is the underlying hash before the reserved-band remap.
func rawIno(parts ...string) uint32 {
	h := fnv.New32a()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return h.Sum32()
}

func TestInoRemapsReservedBandInjectively(t *testing.T) {
	// This name hashes inside the reserved band.
	const name = "aeto96"
	require.Less(t, rawIno(name), uint32(inoFloor))

	got := Ino(name)
	assert.GreaterOrEqual(t, got, uint64(inoFloor))

	// Shifting by the band width would collide with any path whose hash
	// is naturally rawIno(name)+inoFloor; the remap must avoid that image.
	assert.NotEqual(t, uint64(rawIno(name))+inoFloor, got)
	assert.Equal(t, got, Ino(name), "remap is deterministic")
}

func TestInoFitsThirtyTwoBits(t *testing.T) {
	assert.Less(t, Ino("proc", "42", "status"), uint64(1)<<32+16)
}
