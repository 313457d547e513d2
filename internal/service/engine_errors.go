package service

import (
	"errors"

	"github.com/edugest/mini-pautas-api/internal/engine"
	appErrors "github.com/edugest/mini-pautas-api/pkg/errors"
)

// wrapEngineError maps typed engine failures onto the HTTP-aware error set so
// handlers can render them without knowing the engine's error types.
func wrapEngineError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr *engine.ParseError
	if errors.As(err, &parseErr) {
		return appErrors.Wrap(err, appErrors.ErrFormulaParse.Code, appErrors.ErrFormulaParse.Status, parseErr.Error())
	}

	var unknownErr *engine.UnknownComponentError
	if errors.As(err, &unknownErr) {
		return appErrors.Wrap(err, appErrors.ErrUnknownComponent.Code, appErrors.ErrUnknownComponent.Status, unknownErr.Error())
	}

	var cycleErr *engine.CycleError
	if errors.As(err, &cycleErr) {
		return appErrors.Wrap(err, appErrors.ErrDependencyCycle.Code, appErrors.ErrDependencyCycle.Status, cycleErr.Error())
	}

	var evalErr *engine.EvaluationError
	if errors.As(err, &evalErr) {
		return appErrors.Wrap(err, appErrors.ErrEvaluation.Code, appErrors.ErrEvaluation.Status, evalErr.Error())
	}

	var missingErr *engine.MissingComponentError
	if errors.As(err, &missingErr) {
		return appErrors.Wrap(err, appErrors.ErrMissingComponent.Code, appErrors.ErrMissingComponent.Status, missingErr.Error())
	}

	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "grade computation failed")
}
