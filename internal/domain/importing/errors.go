package importing

import "errors"

var (
	ErrImportNotFound    = errors.New("import not found")
	ErrChunkNotFound     = errors.New("chunk not found")
	ErrForbidden         = errors.New("import belongs to another user")
	ErrInvalidTransition = errors.New("invalid import status transition")
	ErrImportStopped     = errors.New("import stopped")
	ErrEmptyImport       = errors.New("import file has no data rows")
)
