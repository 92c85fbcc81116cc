package runtime

import "errors"

// Definition errors surface at Define time and are meant to be caught
// during startup, not at runtime.
var (
	ErrEmptyClassName = errors.New("class name is empty")
	ErrClassExists    = errors.New("class already defined")
	ErrReservedName   = errors.New("class name collides with a primitive kind")
	ErrUnknownClass   = errors.New("unknown class")
	ErrBadMembers     = errors.New("members must be a map or a map generator")
	ErrBadMember      = errors.New("invalid member")
)

// Instantiation and construction-discipline errors.
var (
	ErrBadAllocator       = errors.New("allocator returned an incompatible handle")
	ErrInstanceRegistered = errors.New("instance already registered")
	ErrNotInstance        = errors.New("value is not a tracked instance")
	ErrNoCloneBody        = errors.New("class has no clone body")
	ErrNoFrame            = errors.New("no active construction frame for instance")
	ErrNotAncestor        = errors.New("class is not an ancestor")
	ErrAlreadyConstructed = errors.New("ancestor constructor already invoked")
)

// Operation errors.
var (
	ErrNotCallable = errors.New("value is not callable")
	ErrNoHook      = errors.New("operation not supported by class")
)
