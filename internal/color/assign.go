package color

import "hash/fnv"

// ForAddress derives a stable, bright color for a client address. The same
// address always maps to the same color so reconnecting clients keep theirs.
func ForAddress(address string) HSL {
	hasher := fnv.New32a()
	hasher.Write([]byte(address))
	sum := hasher.Sum32()
	return HSL{
		H: float64(sum % 360),
		S: float64(65 + (sum>>9)%31),
		L: float64(45 + (sum>>17)%16),
	}
}
