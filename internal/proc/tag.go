package proc

// SecondaryBit marks a completion tag as the smaps_rollup read.
const SecondaryBit uint64 = 1 << 63

func primaryTag(pid uint32) uint64   { return uint64(pid) }
func secondaryTag(pid uint32) uint64 { return uint64(pid) | SecondaryBit }

func splitTag(tag uint64) (pid uint32, secondary bool) {
	return uint32(tag &^ SecondaryBit), tag&SecondaryBit != 0
}
