// Package compression wraps the codecs used for entry bodies at rest.
package compression

// Compressor is a whole-buffer codec. Implementations are stateless and
// safe for concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
