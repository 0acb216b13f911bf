package container

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/dmitrymomot/waypoint/core/route"
)

var (
	requestType = reflect.TypeFor[*http.Request]()
	contextType = reflect.TypeFor[context.Context]()
	paramsType  = reflect.TypeFor[route.Params]()
	errorType   = reflect.TypeFor[error]()
)

// Call invokes target, resolving its arguments. Well-known action
// signatures are called directly.
func (c *Container) Call(r *http.Request, target any, params route.Params) (any, error) {
	if out, ok, err := route.TryInvoke(r, target, params); ok {
		return out, err
	}

	fn := reflect.ValueOf(target)
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrInvalidTarget, target)
	}

	ft := fn.Type()
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic %T", route.ErrUnsupportedCall, target)
	}

	// Scalars are filled by declared name so an unmatched optional
	// parameter does not shift the values after it.
	slots := params
	if r != nil {
		if names, ok := route.ParameterNames(r.Context()); ok {
			slots = params.Aligned(names)
		}
	}

	args := make([]reflect.Value, ft.NumIn())
	next := 0
	for i := range args {
		v, err := c.argument(ft.In(i), r, params, slots, &next)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	return results(fn.Call(args))
}

func (c *Container) argument(t reflect.Type, r *http.Request, params, slots route.Params, next *int) (reflect.Value, error) {
	switch {
	case t == requestType:
		return reflect.ValueOf(r), nil
	case t == contextType:
		return reflect.ValueOf(r.Context()), nil
	case t == paramsType:
		return reflect.ValueOf(params), nil
	}

	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		var p route.Param
		if *next < len(slots) {
			p = slots[*next]
			*next++
		}
		return scalar(t, p)
	case reflect.Struct:
		if hasParamTags(t) {
			return decodeParams(t, params)
		}
	case reflect.Pointer:
		if hasParamTags(t.Elem()) && !c.Bound(typeKey(t)) {
			v, err := decodeParams(t.Elem(), params)
			if err != nil {
				return reflect.Value{}, err
			}
			ptr := reflect.New(t.Elem())
			ptr.Elem().Set(v)
			return ptr, nil
		}
	}

	dep, err := c.Make(typeKey(t))
	if err != nil {
		return reflect.Value{}, err
	}
	v := reflect.ValueOf(dep)
	if !v.IsValid() {
		return reflect.Zero(t), nil
	}
	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%w: %s is %T", ErrTypeMismatch, t, dep)
	}
	return v, nil
}

func scalar(t reflect.Type, p route.Param) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	if p.Value == "" {
		return v, nil
	}

	bad := func(err error) (reflect.Value, error) {
		return reflect.Value{}, fmt.Errorf("%w: %s=%q: %w", ErrBadParameter, p.Name, p.Value, err)
	}

	switch t.Kind() {
	case reflect.String:
		v.SetString(p.Value)
	case reflect.Bool:
		b, err := strconv.ParseBool(p.Value)
		if err != nil {
			return bad(err)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(p.Value, 10, t.Bits())
		if err != nil {
			return bad(err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(p.Value, 10, t.Bits())
		if err != nil {
			return bad(err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(p.Value, t.Bits())
		if err != nil {
			return bad(err)
		}
		v.SetFloat(n)
	}
	return v, nil
}

func hasParamTags(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := range t.NumField() {
		if _, ok := t.Field(i).Tag.Lookup("param"); ok {
			return true
		}
	}
	return false
}

func decodeParams(t reflect.Type, params route.Params) (reflect.Value, error) {
	ptr := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "param",
		WeaklyTypedInput: true,
		Result:           ptr.Interface(),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(params.Map()); err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %w", ErrBadParameter, err)
	}
	return ptr.Elem(), nil
}

func results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if out[1].Type() != errorType {
			return nil, fmt.Errorf("%w: second result must be error", route.ErrUnsupportedCall)
		}
		return out[0].Interface(), asError(out[1])
	}
	return nil, fmt.Errorf("%w: too many results", route.ErrUnsupportedCall)
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
