package texture

import "errors"

var (
	errNoSubImages        = errors.New("texture: no sub-images to compose")
	errShortInput         = errors.New("texture: input too short")
	errBadSignature       = errors.New("texture: bad pvr signature")
	errUnknownPixelFormat = errors.New("texture: unknown pixel format")
)
