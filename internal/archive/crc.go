package archive

// CRC-32 lookup table for the reflected 0xEDB88320 polynomial, built once at
// process start. ZIP entries carry this checksum in their local and central
// directory headers.
var crcTable [256]uint32

func init() {
	for i := range crcTable {
		c := uint32(i)
		for k := 0; k < 8; k++ {
			if c&1 != 0 {
				c = 0xEDB88320 ^ (c >> 1)
			} else {
				c >>= 1
			}
		}
		crcTable[i] = c
	}
}

// checksum computes the standard CRC-32: seeded with all ones, complemented
// at the end.
func checksum(data []byte) uint32 {
	c := uint32(0xFFFFFFFF)
	for _, b := range data {
		c = crcTable[(c^uint32(b))&0xFF] ^ (c >> 8)
	}
	return c ^ 0xFFFFFFFF
}
