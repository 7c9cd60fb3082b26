package directive

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
)

// ErrorKind separates directive misuse from local index eligibility failures.
type ErrorKind string

const (
	KindStructural  ErrorKind = "structural"
	KindEligibility ErrorKind = "eligibility"
)

var (
	ErrNotModel                 = errors.New("directive may only be used on model types")
	ErrUnknownField             = errors.New("field does not exist")
	ErrSelfReference            = errors.New("sort key field cannot reference itself")
	ErrNonScalarKey             = errors.New("key field must be a scalar or enum")
	ErrListKey                  = errors.New("key field cannot be a list")
	ErrNullablePartitionKey     = errors.New("primary key field must be non-null")
	ErrDuplicateIndexName       = errors.New("duplicate index name")
	ErrInvalidIndexName         = errors.New("index name must be 3 to 255 letters, digits, underscores, hyphens or periods")
	ErrNullIndexName            = errors.New("explicit null not allowed for name")
	ErrDuplicatePrimaryKey      = errors.New("a model may declare only one primary key")
	ErrDuplicateSortKeyField    = errors.New("sort key field listed more than once")
	ErrInvalidArgument          = errors.New("invalid directive argument")
	ErrLocalIndexWithoutSortKey = errors.New("cannot have a local secondary index without a sort key")
)

// Error is a compile-time directive error. It names the directive, type and
// field so the offending schema source can be found.
type Error struct {
	Kind      ErrorKind
	Directive string
	Type      string
	Field     string
	Position  *ast.Position
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("@%s on %s.%s: %v", e.Directive, e.Type, e.Field, e.Err)
	if e.Position != nil && e.Position.Src != nil {
		return fmt.Sprintf("%s:%d: %s", e.Position.Src.Name, e.Position.Line, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsEligibility reports whether err is a local index eligibility error.
func IsEligibility(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == KindEligibility
}

func structural(dir *ast.Directive, typ, field string, err error) *Error {
	return newError(KindStructural, dir, typ, field, err)
}

func eligibility(dir *ast.Directive, typ, field string, err error) *Error {
	return newError(KindEligibility, dir, typ, field, err)
}

func newError(kind ErrorKind, dir *ast.Directive, typ, field string, err error) *Error {
	e := &Error{Kind: kind, Type: typ, Field: field, Err: err}
	if dir != nil {
		e.Directive = dir.Name
		e.Position = dir.Position
	}
	return e
}
