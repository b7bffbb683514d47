package model

import "errors"

// Error kinds shared across every component (§7).
var (
	ErrConfig     = errors.New("config error")
	ErrAuth       = errors.New("authentication error")
	ErrTransport  = errors.New("transport error")
	ErrNotFound   = errors.New("not found")
	ErrExtraction = errors.New("extraction error")
	ErrValidation = errors.New("validation error")
	ErrTransform  = errors.New("transform error")
	ErrPack       = errors.New("pack error")
	ErrControl    = errors.New("control record error")
	ErrUpload     = errors.New("upload error")
	ErrCancelled  = errors.New("cancelled")
	ErrInternal   = errors.New("internal error")
)
