// Package filter parses AIP-160 membership filter expressions such as
// `role = "admin" AND status = "active"` into a domain.Filter.
package filter

import (
	"fmt"
	"strings"

	"b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Declarations returns the identifiers a membership filter may reference.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("role", filtering.TypeString),
		filtering.DeclareIdent("status", filtering.TypeString),
		filtering.DeclareIdent("user_id", filtering.TypeString),
	)
}

// Parse translates s into a Filter. Only equality terms joined by AND are
// supported; each field may appear once. An empty string matches everything.
func Parse(s string) (domain.Filter, error) {
	var f domain.Filter
	if strings.TrimSpace(s) == "" {
		return f, nil
	}
	decls, err := Declarations()
	if err != nil {
		return f, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(s, decls)
	if err != nil {
		return f, errs.Newf(errs.ErrInvalidArgument, "filter: %v", err)
	}
	seen := map[string]bool{}
	if err := apply(&f, parsed.CheckedExpr.GetExpr(), seen); err != nil {
		return domain.Filter{}, err
	}
	return f, nil
}

func apply(f *domain.Filter, e *expr.Expr, seen map[string]bool) error {
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return errs.Newf(errs.ErrInvalidArgument, "filter: unsupported expression %T", e.GetExprKind())
	}
	args := call.CallExpr.GetArgs()
	switch call.CallExpr.GetFunction() {
	case filtering.FunctionAnd:
		if len(args) != 2 {
			return errs.New(errs.ErrInvalidArgument, "filter: AND requires 2 arguments")
		}
		if err := apply(f, args[0], seen); err != nil {
			return err
		}
		return apply(f, args[1], seen)
	case filtering.FunctionEquals:
		if len(args) != 2 {
			return errs.New(errs.ErrInvalidArgument, "filter: = requires 2 arguments")
		}
		field := args[0].GetIdentExpr().GetName()
		value := args[1].GetConstExpr().GetStringValue()
		if field == "" || args[1].GetConstExpr() == nil {
			return errs.New(errs.ErrInvalidArgument, "filter: expected field = \"value\"")
		}
		if seen[field] {
			return errs.Newf(errs.ErrInvalidArgument, "filter: %s given more than once", field)
		}
		seen[field] = true
		return set(f, field, value)
	default:
		return errs.Newf(errs.ErrInvalidArgument, "filter: unsupported operator %s", call.CallExpr.GetFunction())
	}
}

func set(f *domain.Filter, field, value string) error {
	switch field {
	case "role":
		r, ok := domain.ParseRole(value)
		if !ok {
			return errs.Newf(errs.ErrInvalidArgument, "filter: unknown role %q", value)
		}
		f.Role = r
	case "status":
		st, ok := domain.ParseStatus(value)
		if !ok {
			return errs.Newf(errs.ErrInvalidArgument, "filter: unknown status %q", value)
		}
		f.Status = st
	case "user_id":
		f.UserID = value
	default:
		return errs.Newf(errs.ErrInvalidArgument, "filter: unknown field %s", field)
	}
	return nil
}
