package miniapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// paramKind classifies a declared parameter at registration time.
type paramKind int

const (
	kindScalar  paramKind = iota // primitive or slice of primitives
	kindModel                    // validated value built from query + body
	kindSpecial                  // injected object (*Request, Headers)
)

// paramSpec describes one declared handler parameter. Descriptors are built once
// per route, never per request.
type paramSpec struct {
	name       string
	index      int
	typ        reflect.Type
	kind       paramKind
	def        string
	hasDefault bool
	optional   bool
}

// resolver binds requests onto a handler's request struct.
type resolver struct {
	typ       reflect.Type
	params    []paramSpec
	validator Validator
}

var (
	typeDuration = reflect.TypeFor[time.Duration]()
	typeTime     = reflect.TypeFor[time.Time]()
	typeBytes    = reflect.TypeFor[[]byte]()
)

// newResolver inspects the request type once. It fails for field types the
// dispatcher cannot bind.
func newResolver(t reflect.Type, v Validator) (*resolver, error) {
	r := &resolver{typ: t, validator: v}
	if t == reflect.TypeFor[Void]() {
		return r, nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("request type %s must be a struct", t)
	}

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Tag.Get("param")
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}

		ps := paramSpec{name: name, index: i, typ: f.Type}
		ps.def, ps.hasDefault = f.Tag.Lookup("default")

		switch {
		case isSpecialType(f.Type):
			ps.kind = kindSpecial
		case isModelType(f.Type):
			ps.kind = kindModel
		default:
			elem := f.Type
			if elem.Kind() == reflect.Pointer {
				ps.optional = true
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Slice {
				elem = elem.Elem()
			}
			if !isScalarType(elem) {
				return nil, fmt.Errorf("parameter %s: unsupported type %s", name, f.Type)
			}
		}

		r.params = append(r.params, ps)
	}

	return r, nil
}

func isModelType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != typeTime
}

func isScalarType(t reflect.Type) bool {
	if t == typeDuration || t == typeTime {
		return true
	}
	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// resolve builds a new request value. Either every declared parameter is
// bound, or a single *ValidationError naming the offending parameter is
// returned and the partially filled value is discarded.
func (r *resolver) resolve(req *Request) (reflect.Value, error) {
	target := reflect.New(r.typ)
	v := target.Elem()

	for _, ps := range r.params {
		if err := r.bind(v.Field(ps.index), ps, req); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return reflect.Value{}, ve
			}
			return reflect.Value{}, &ValidationError{Err: err}
		}
	}

	return target, nil
}

func (r *resolver) bind(field reflect.Value, ps paramSpec, req *Request) error {
	// 1. path parameters
	if ps.kind == kindScalar {
		if val, ok := req.pathParams[ps.name]; ok {
			if err := setFieldValue(field, val); err != nil {
				return &ParameterError{Name: ps.name, Value: val, Err: fmt.Errorf("%w: %w", ErrBindPath, err)}
			}
			return nil
		}
	}

	// 2. validated values
	if ps.kind == kindModel {
		val, err := r.buildModel(ps, req)
		if err != nil {
			return err
		}
		field.Set(val)
		return nil
	}

	// 3. query parameters
	if ps.kind == kindScalar {
		if vals, ok := req.query[ps.name]; ok && len(vals) > 0 {
			if err := setFieldValues(field, vals); err != nil {
				return &ParameterError{Name: ps.name, Value: vals[0], Err: fmt.Errorf("%w: %w", ErrBindQuery, err)}
			}
			return nil
		}
	}

	// 4. special objects
	if ps.kind == kindSpecial {
		field.Set(specialValue(ps.typ, req))
		return nil
	}

	// 5. declared defaults
	if ps.hasDefault {
		if err := setFieldValue(field, ps.def); err != nil {
			return &ParameterError{Name: ps.name, Value: ps.def, Err: fmt.Errorf("%w: %w", ErrBindDefault, err)}
		}
		return nil
	}
	if ps.optional {
		return nil
	}

	return &MissingParameterError{Name: ps.name}
}

// buildModel constructs a validated value from the flattened query merged
// with the JSON body. Body keys take precedence over query keys.
func (r *resolver) buildModel(ps paramSpec, req *Request) (reflect.Value, error) {
	st := ps.typ
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}

	body, err := req.jsonObject()
	if err != nil {
		return reflect.Value{}, &ValidationError{Message: "invalid JSON body", Err: err}
	}

	target := reflect.New(st)
	var fields []FieldError

	elem := target.Elem()
	for i := range st.NumField() {
		f := st.Field(i)
		if !f.IsExported() {
			continue
		}
		key := jsonFieldName(f)
		if key == "" {
			continue
		}
		if _, inBody := lookupFold(body, key); inBody {
			continue
		}
		vals, ok := lookupFold(map[string][]string(req.query), key)
		if !ok || len(vals) == 0 {
			continue
		}
		// The query is flattened to one value per key before the merge.
		if err := setFieldValues(elem.Field(i), vals[:1]); err != nil {
			fields = append(fields, FieldError{
				Field:   key,
				Message: fmt.Sprintf("%s: invalid value %q", key, vals[0]),
				Value:   vals[0],
			})
		}
	}

	if len(req.body) > 0 {
		if err := json.Unmarshal(req.body, target.Interface()); err != nil {
			fields = append(fields, unmarshalFieldError(err))
		}
	}

	if len(fields) > 0 {
		return reflect.Value{}, &ValidationError{Fields: fields, Err: ErrBindBody}
	}

	if err := validateValue(r.validator, target.Interface()); err != nil {
		return reflect.Value{}, err
	}

	if ps.typ.Kind() == reflect.Pointer {
		return target, nil
	}
	return target.Elem(), nil
}

func unmarshalFieldError(err error) FieldError {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return FieldError{
			Field:   te.Field,
			Message: fmt.Sprintf("%s must be of type %s", te.Field, te.Type),
			Value:   te.Value,
		}
	}
	return FieldError{Field: "body", Message: err.Error()}
}

// jsonFieldName returns the JSON key for a struct field, or "" if the field
// is excluded from JSON.
func jsonFieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}

// lookupFold finds key in m the way encoding/json matches object keys to
// fields: an exact match first, then a case-insensitive one. Ties among
// case-insensitive matches go to the lexically smallest key.
func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	var zero V
	match := ""
	for k := range m {
		if strings.EqualFold(k, key) && (match == "" || k < match) {
			match = k
		}
	}
	if match == "" {
		return zero, false
	}
	return m[match], true
}

// setFieldValues binds every value to a slice field, or the first value to
// anything else.
func setFieldValues(field reflect.Value, values []string) error {
	t := field.Type()
	if t.Kind() == reflect.Slice && t != typeBytes {
		out := reflect.MakeSlice(t, len(values), len(values))
		for i, v := range values {
			if err := setFieldValue(out.Index(i), v); err != nil {
				return err
			}
		}
		field.Set(out)
		return nil
	}
	return setFieldValue(field, values[0])
}

// setFieldValue sets a reflect.Value from a string, supporting common types.
func setFieldValue(field reflect.Value, value string) error {
	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := setFieldValue(ptr.Elem(), value); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	switch field.Type() {
	case typeBytes:
		field.SetBytes([]byte(value))
		return nil
	case typeDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	case typeTime:
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(ts))
		return nil
	}

	//exhaustive:ignore
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		return setFieldValues(field, []string{value})
	default:
		return fmt.Errorf("unsupported type: %s", field.Type())
	}
	return nil
}
