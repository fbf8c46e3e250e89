package importing

import "errors"

var (
	ErrInvalidFile   = errors.New("invalid import file")
	ErrStoreFile     = errors.New("failed to store import file")
	ErrCountRows     = errors.New("failed to count import rows")
	ErrCreateImport  = errors.New("failed to create import")
	ErrDispatch      = errors.New("failed to dispatch chunk jobs")
	ErrUpdateImport  = errors.New("failed to update import")
	ErrGetImport     = errors.New("failed to get import")
	ErrInvalidFilter = errors.New("invalid row result filter")
)
