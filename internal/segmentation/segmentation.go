// Package segmentation defines the boundary to the background-removal
// model. The model is an opaque collaborator: encoded image bytes go in,
// encoded image bytes with transparent background pixels come out.
package segmentation

import "context"

// Remover strips the background from an encoded image. Implementations must
// return an image whose non-subject pixels have alpha zero, encoded in a
// format image.Decode understands (the rembg server returns PNG).
type Remover interface {
	Remove(ctx context.Context, data []byte) ([]byte, error)
}

// Passthrough returns the input unchanged. It stands in for the model when
// no inference server is configured and in tests.
type Passthrough struct{}

// NewPassthrough constructs the no-op remover.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Remove implements Remover.
func (p *Passthrough) Remove(_ context.Context, data []byte) ([]byte, error) {
	return data, nil
}
