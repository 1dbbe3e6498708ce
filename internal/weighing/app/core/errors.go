package core

import "errors"

var (
	ErrRecipeNotFound   = errors.New("recipe not found")
	ErrMaterialNotFound = errors.New("material not found")
	ErrBinNotFound      = errors.New("bin not found")

	ErrInvalidFormat   = errors.New("invalid format")
	ErrInvalidIndex    = errors.New("order index out of range")
	ErrInvalidNumber   = errors.New("bin number must have exactly 8 digits")
	ErrInvalidDuration = errors.New("cleaning time must be a positive number of minutes")
	ErrDuplicateNumber = errors.New("a bin with this number already exists")

	ErrOPSequenceExhausted = errors.New("production order sequence exhausted")

	ErrFieldIsEmpty = errors.New("field is empty")
)
