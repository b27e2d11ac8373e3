package bitmap

import "errors"

var (
	errShortInput    = errors.New("bitmap: input too short")
	errBadDimensions = errors.New("bitmap: non-positive width or height")
)
