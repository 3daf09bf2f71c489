package db

import (
	"encoding/json"
	"errors"
	"reflect"
)

var errDBUnavailable = errors.New("db unavailable")

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// marshalOrNil maps absent values to a NULL column instead of the
// JSON literal "null". A typed nil pointer or slice boxed into the
// interface compares unequal to nil, so the kind has to be inspected.
func marshalOrNil(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return nil, nil
		}
	}
	return json.Marshal(value)
}
