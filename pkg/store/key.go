package store

import (
	"encoding/binary"
	"fmt"
)

// Key constrains the key types a store can be declared with. Integer keys
// encode order-preserving, so int and int64 stores are interchangeable under
// Retype; string keys use a distinct encoding and never convert to integers.
type Key interface {
	int | int64 | string
}

// encodeKey maps a key to its byte representation in the kv layer. Strings
// are raw bytes; integers are 8-byte big-endian with the sign bit flipped so
// that lexicographic byte order matches numeric order.
func encodeKey[K Key](k K) []byte {
	switch v := any(k).(type) {
	case string:
		return []byte(v)
	case int:
		return encodeIntKey(int64(v))
	case int64:
		return encodeIntKey(v)
	}
	// Unreachable: the Key constraint admits no other types.
	panic("store: unsupported key type")
}

func encodeIntKey(v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v)^(1<<63))
	return buf[:]
}

// convertKey attempts a lossless conversion of a key into type K2. Only
// conversions that preserve the encoded byte representation are allowed.
func convertKey[K2 Key](k any) (K2, error) {
	if out, ok := k.(K2); ok {
		return out, nil
	}
	switch v := k.(type) {
	case int:
		if out, ok := any(int64(v)).(K2); ok {
			return out, nil
		}
	case int64:
		if out, ok := any(int(v)).(K2); ok {
			return out, nil
		}
	}
	var zero K2
	return zero, fmt.Errorf("%w: key %v (%T) to %T", ErrCast, k, k, zero)
}
