package script

import "errors"

var errMissingStartToken = errors.New("script: missing leading SC token")
