package miniapi

// Test-only exports for internal functions.
var (
	BodyOf              = bodyOf
	EncodeBody          = encodeBody
	WrapResult          = wrapResult
	NewRequestFromScope = newRequestFromScope
	ClientKey           = clientKey
	JSONObject          = (*Request).jsonObject
)

// HeaderPairs exposes the wire form of a Header.
func HeaderPairs(h *Header) []HeaderPair { return h.pairs() }
