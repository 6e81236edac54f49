package volume

// On-disk magic numbers.
const (
	MagicBlock uint32 = 0x484e3442 // "HN4B"
	MagicMeta  uint32 = 0x484e344d // "HN4M"
	MagicSign  uint32 = 0x5349474e // "SIGN"
	MagicNano  uint32 = 0x484e344e // "HN4N"
)
