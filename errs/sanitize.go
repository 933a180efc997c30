// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package errs

import (
	"reflect"
	"strings"
)

const redacted = "***REDACTED***"

var sensitiveNames = map[string]struct{}{
	"apikey":     {},
	"api_key":    {},
	"secret":     {},
	"password":   {},
	"token":      {},
	"privatekey": {},
}

func isSensitiveKey(name string) bool {
	_, ok := sensitiveNames[strings.ToLower(name)]
	return ok
}

// Sanitize returns a copy of v with any map key or struct field whose
// name matches apiKey/api_key/secret/password/token/privateKey
// (case-insensitive, recursive) replaced with a redaction sentinel. It
// is used before error payloads are logged or returned across the API
// surface.
func Sanitize(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	return sanitizeValue(reflect.ValueOf(v)).Interface()
}

func sanitizeValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		inner := sanitizeValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		if inner.Type().AssignableTo(v.Type()) {
			out.Set(inner)
		} else {
			out.Set(reflect.ValueOf(inner.Interface()))
		}
		return out

	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(sanitizeValue(v.Elem()))
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		for _, key := range v.MapKeys() {
			val := v.MapIndex(key)
			if key.Kind() == reflect.String && isSensitiveKey(key.String()) {
				out.SetMapIndex(key, redactInto(val.Type()))
				continue
			}
			out.SetMapIndex(key, sanitizeValue(val))
		}
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			fv := v.Field(i)
			if !out.Field(i).CanSet() {
				continue
			}
			if isSensitiveKey(f.Name) {
				out.Field(i).Set(redactInto(fv.Type()))
				continue
			}
			out.Field(i).Set(sanitizeValue(fv))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(sanitizeValue(v.Index(i)))
		}
		return out

	default:
		return v
	}
}

func redactInto(t reflect.Type) reflect.Value {
	if t.Kind() == reflect.String {
		return reflect.ValueOf(redacted).Convert(t)
	}
	if t.Kind() == reflect.Interface {
		return reflect.ValueOf(redacted)
	}
	return reflect.Zero(t)
}
