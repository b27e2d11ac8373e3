package pipeline

import "errors"

var (
	errShortIntermediate = errors.New("pipeline: intermediate file too short")
	errScriptMissingAST  = errors.New("pipeline: script plugin has no parsed AST to assemble")
)
