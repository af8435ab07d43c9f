package ports

// Codec compresses serialized request bodies before dispatch.
//
// Implementations must be deterministic for identical input and
// configuration, and must document their worst-case expansion so callers can
// size transport limits.
type Codec interface {
	// Name identifies the codec, e.g. for the Content-Encoding header.
	Name() string

	// Compressed reports whether Compress output differs from its input.
	// An identity codec returns false.
	Compressed() bool

	// Compress returns the encoded form of data.
	Compress(data []byte) ([]byte, error)
}
