package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/roach88/transmute/internal/bundle"
	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/recipe"
	"github.com/roach88/transmute/internal/source"
	"github.com/roach88/transmute/internal/store"
)

// errorCode maps an error to the code reported in CLI responses.
func errorCode(err error) string {
	var compileErr *recipe.CompileError
	var memberErr *lineage.MemberError
	switch {
	case errors.As(err, &compileErr):
		return ErrCodeRecipe
	case errors.Is(err, source.ErrMissingLabel):
		return ErrCodeMissingLabel
	case errors.Is(err, source.ErrFormat):
		return ErrCodeSourceFormat
	case errors.Is(err, lineage.ErrMalformedRecord):
		return ErrCodeRecord
	case errors.As(err, &memberErr), errors.Is(err, lineage.ErrInvalidOperation):
		return ErrCodeTransformation
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, bundle.ErrNoDirectory), errors.Is(err, bundle.ErrReservedName):
		return ErrCodeWriteFailed
	}
	return ErrCodeGeneric
}

// errorDetails returns structured context for err, or nil.
func errorDetails(err error) any {
	var memberErr *lineage.MemberError
	if errors.As(err, &memberErr) {
		return map[string]any{
			"member": memberErr.Index,
			"digest": memberErr.Digest,
		}
	}
	var compileErr *recipe.CompileError
	if errors.As(err, &compileErr) && compileErr.Pos.IsValid() {
		return map[string]any{
			"file":   compileErr.Pos.Filename(),
			"line":   compileErr.Pos.Line(),
			"column": compileErr.Pos.Column(),
		}
	}
	return nil
}

// outputError reports err through formatter and returns an ExitError
// carrying exitCode.
func outputError(formatter *OutputFormatter, exitCode int, message string, err error) error {
	code := errorCode(err)
	_ = formatter.Error(code, fmt.Sprintf("%s: %v", message, err), errorDetails(err))
	return WrapExitError(exitCode, fmt.Sprintf("%s: %s", code, message), err)
}
