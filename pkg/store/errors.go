package store

import "errors"

var (
	// ErrLengthMismatch is returned when a write operation is given a value
	// sequence whose length differs from the batch key sequence
	ErrLengthMismatch = errors.New("values length does not match keys length")
	// ErrIndexOutOfRange is returned when indexing a batch reference outside
	// its key sequence
	ErrIndexOutOfRange = errors.New("record index out of range")
	// ErrCast is returned when a reference cannot be retyped to the requested
	// key type
	ErrCast = errors.New("cannot retype reference")
)
