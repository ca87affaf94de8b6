package models

import "errors"

// Erros de domínio. As camadas inferiores os embrulham com fmt.Errorf("%w: ...")
// e os handlers os traduzem para status HTTP com errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrAuth          = errors.New("authentication error")
	ErrForbidden     = errors.New("not authorized")
	ErrSchemaMissing = errors.New("schema missing")
	ErrNetwork       = errors.New("network error")
)
