package sim

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// StateHash digests the deterministic state into a 64-bit fingerprint. Two
// engines that applied the same commands over the same ticks report the
// same hash; any drift in actor or projectile state changes it. The
// encoding is little-endian with length-prefixed strings, so adjacent
// fields cannot alias.
func (e *Engine) StateHash() string {
	digest := xxhash.New()
	var scratch [8]byte

	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		digest.Write(scratch[:])
	}
	writeFloat := func(v float64) {
		writeUint(math.Float64bits(v))
	}
	writeString := func(s string) {
		writeUint(uint64(len(s)))
		digest.WriteString(s)
	}

	writeUint(e.tick)
	writeUint(uint64(len(e.actors)))
	for _, state := range e.actors {
		writeString(state.ID)
		writeFloat(state.X)
		writeFloat(state.Y)
		writeFloat(state.Radius)
		writeString(string(state.Facing))
	}
	writeUint(uint64(len(e.projectiles)))
	for _, state := range e.projectiles {
		writeString(state.ID)
		writeString(state.OwnerID)
		writeFloat(state.X)
		writeFloat(state.Y)
		writeFloat(state.VX)
		writeFloat(state.VY)
		writeFloat(state.traveled)
	}
	return fmt.Sprintf("%016x", digest.Sum64())
}
