package versync

import "errors"

var (
	ErrUnknownField    = errors.New("versync: unknown field")
	ErrUnknownKey      = errors.New("versync: unknown key")
	ErrUnknownPath     = errors.New("versync: unknown tree path")
	ErrShapeMismatch   = errors.New("versync: diff shape does not match the value")
	ErrBadAction       = errors.New("versync: bad action tag")
	ErrUnrepresentable = errors.New("versync: value can not be replicated")
	ErrNotAddressable  = errors.New("versync: replication target must be a pointer or a map")
	ErrOutOfOrder      = errors.New("versync: diff range does not follow the last applied version")
	ErrNoSink          = errors.New("versync: no sink for the stream")
)
