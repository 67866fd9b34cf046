package common

const (
	// FragmentSize is the fixed plaintext size of one fragment. The last
	// fragment of a payload may be shorter.
	FragmentSize = 64 * 1024

	// LargeContentThreshold marks content that is stored externally instead
	// of being reassembled fully in memory. Such content is complete the
	// moment its metadata arrives.
	LargeContentThreshold = 10 * 1024 * 1024

	// KeySize is the derived session key length in bytes (AES-256).
	KeySize = 32
)
