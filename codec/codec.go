// Package codec converts cached values to and from the bytes an adapter stores.
package codec

import "fmt"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Error tags a failure with the direction it happened in.
type Error struct {
	Op  string // "encode" | "decode"
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("codec %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Encode runs c.Encode and wraps a failure in *Error.
func Encode[V any](c Codec[V], v V) ([]byte, error) {
	b, err := c.Encode(v)
	if err != nil {
		return nil, &Error{Op: "encode", Err: err}
	}
	return b, nil
}

// Decode runs c.Decode and wraps a failure in *Error.
func Decode[V any](c Codec[V], b []byte) (V, error) {
	v, err := c.Decode(b)
	if err != nil {
		var zero V
		return zero, &Error{Op: "decode", Err: err}
	}
	return v, nil
}
