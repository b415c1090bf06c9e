package namespace

import "hash/fnv"

// RootIno is the reserved identity of the composed filesystem root. The
// root is never reached through an ordinary lookup, so it is assigned
// out-of-band at composer construction.
const RootIno = 1

// inoFloor keeps derived identities clear of the reserved band around
// RootIno (and of 0, which the kernel treats as "no inode").
const inoFloor = 16

// Ino derives a stable 32-bit identity from a node's logical path
// components, conventionally a provider tag followed by entry names.
// Identity is a function of the path alone, never of allocation order, so
// repeated lookups of the same still-resolving path agree across process
// churn and across concurrent requests.
func Ino(parts ...string) uint64 {
	h := fnv.New32a()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	v := h.Sum32()
	// A value inside the reserved band is rehashed rather than shifted:
	// shifting by the band width would land on identities already
	// reachable by direct hashing of another path.
	for v < inoFloor {
		h.Write([]byte{0xff})
		v = h.Sum32()
	}
	return uint64(v)
}
