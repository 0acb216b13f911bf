package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
)

// Prepare converts an action result into a Response.
func Prepare(v any) (*Response, error) {
	switch val := v.(type) {
	case *Response:
		if val == nil {
			return Status(http.StatusOK), nil
		}
		return val, nil
	case nil:
		return Status(http.StatusOK), nil
	case string:
		return String(val), nil
	case []byte:
		return Bytes(val), nil
	case json.Marshaler:
		return encode(v)
	case fmt.Stringer:
		return String(val.String()), nil
	}

	if shouldBeJSON(v) {
		return encode(v)
	}
	return String(fmt.Sprint(v)), nil
}

func encode(v any) (*Response, error) {
	res, err := JSON(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return res, nil
}

func shouldBeJSON(v any) bool {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
