package hostfuncs

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Args holds the positional arguments a script passed to a host operation,
// already exported to Go values (float64, int64, string, bool, nil, maps and slices).
type Args []any

// Float64 returns argument i as a float64.
// Missing or non-numeric arguments yield NaN, matching script number coercion.
func (a Args) Float64(i int) float64 {
	if i < 0 || i >= len(a) {
		return math.NaN()
	}
	switch v := a[i].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return math.NaN()
	}
}

// Float32 returns argument i as a float32.
func (a Args) Float32(i int) float32 {
	return float32(a.Float64(i))
}

// Handler is the common shape of every host operation.
// The returned value is handed back to the script; Void means undefined.
type Handler func(ctx context.Context, args Args) (any, error)

// HostFunc is a generic function signature for host operations.
// It accepts a context and a typed request, and returns a typed response.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// Void is the response type of operations that return nothing to the script.
type Void struct{}

// validate is a package-level singleton, shared by every typed handler.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// finite rejects NaN and the infinities, which scripts produce freely.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Float32, reflect.Float64:
			return !math.IsNaN(f.Float()) && !math.IsInf(f.Float(), 0)
		default:
			return true
		}
	})
	return v
}

// NewTypedHandler wraps a typed HostFunc into a Handler.
// Positional arguments are assigned to the request struct's exported fields
// in declaration order, then the struct is validated.
//
// Usage:
//
//	rect := hostfuncs.NewTypedHandler(func(ctx context.Context, req hostfuncs.RectRequest) (hostfuncs.Void, error) {
//	    return hostfuncs.PerformRect(ctx, req)
//	})
//
//	// From the bridge:
//	resp, err := rect(ctx, hostfuncs.Args{10.0, 20.0})
func NewTypedHandler[Req any, Resp any](fn HostFunc[Req, Resp]) Handler {
	return func(ctx context.Context, args Args) (any, error) {
		var req Req
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if err := validateRequest(&req); err != nil {
			return nil, err
		}
		return fn(ctx, req)
	}
}

func validateRequest(req any) error {
	rv := reflect.Indirect(reflect.ValueOf(req))
	if rv.Kind() != reflect.Struct {
		return nil
	}
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", argName(fe.StructField(), rv.Type()), fe.Tag(), fe.Value()))
		}
		return NewValidationError(strings.Join(msgs, "; "))
	}
	return NewValidationError(err.Error())
}

// decodeArgs assigns positional arguments to the fields of the struct pointed to by dst.
// Non-struct requests receive the first argument directly.
func decodeArgs(args Args, dst any) error {
	rv := reflect.ValueOf(dst).Elem()
	if rv.Kind() != reflect.Struct {
		if len(args) == 0 {
			return nil
		}
		return assignArg(rv, args[0], "argument 0")
	}

	rt := rv.Type()
	pos := 0
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := argName(field.Name, rt)
		if pos >= len(args) || args[pos] == nil {
			if field.Type.Kind() == reflect.Pointer || field.Type.Kind() == reflect.Interface {
				pos++
				continue
			}
			return NewValidationError(fmt.Sprintf("missing argument %d (%s)", pos, name))
		}
		if err := assignArg(rv.Field(i), args[pos], name); err != nil {
			return err
		}
		pos++
	}
	return nil
}

func assignArg(dst reflect.Value, arg any, name string) error {
	src := reflect.ValueOf(arg)
	if !src.IsValid() {
		return NewValidationError(fmt.Sprintf("%s: value is undefined", name))
	}
	switch dst.Kind() {
	case reflect.Float32, reflect.Float64:
		if !isNumber(src) {
			return NewValidationError(fmt.Sprintf("%s: expected number, got %T", name, arg))
		}
		dst.SetFloat(toFloat(src))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !isNumber(src) {
			return NewValidationError(fmt.Sprintf("%s: expected integer, got %T", name, arg))
		}
		f := toFloat(src)
		if f != math.Trunc(f) {
			return NewValidationError(fmt.Sprintf("%s: expected integer, got %v", name, f))
		}
		dst.SetInt(int64(f))
		return nil
	}

	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if src.Type().ConvertibleTo(dst.Type()) && src.Kind() == dst.Kind() {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return NewValidationError(fmt.Sprintf("%s: cannot use %T as %s", name, arg, dst.Type()))
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return float64(v.Int())
	}
}

// argName prefers the json tag so messages match the names scripts see in schemas.
func argName(field string, rt reflect.Type) string {
	if f, ok := rt.FieldByName(field); ok {
		if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
			return strings.Split(tag, ",")[0]
		}
	}
	return strings.ToLower(field)
}
