package miniapi

import "reflect"

// Special parameter types. A request field of one of these types receives the
// corresponding object instead of data from the request.
var (
	typeRequest = reflect.TypeFor[*Request]()
	typeHeaders = reflect.TypeFor[Headers]()
)

func isSpecialType(t reflect.Type) bool {
	return t == typeRequest || t == typeHeaders
}

// specialValue returns the injected value for a special parameter type.
func specialValue(t reflect.Type, req *Request) reflect.Value {
	if t == typeHeaders {
		return reflect.ValueOf(req.Headers())
	}
	return reflect.ValueOf(req)
}
