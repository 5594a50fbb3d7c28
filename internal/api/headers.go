package api

import "strings"

// Header lookup is a pure function over a normalized lower-cased map so the
// same logic serves net/http, API Gateway events, and the Snowflake gateway's
// prefixed names without depending on any transport's header representation.

// NormalizeHeaders flattens an http.Header-shaped map to lower-cased keys.
// The first value wins for repeated headers.
func NormalizeHeaders(src map[string][]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, vs := range src {
		if len(vs) == 0 {
			continue
		}
		key := strings.ToLower(k)
		if _, ok := out[key]; !ok {
			out[key] = vs[0]
		}
	}
	return out
}

// NormalizeHeaderMap lower-cases the keys of a single-valued header map
// (the shape API Gateway proxy events carry).
func NormalizeHeaderMap(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[strings.ToLower(k)] = v
	}
	return out
}

// HeaderValue reads the canonical header name from a normalized map, with an
// optional externally-imposed prefix prepended before matching.
func HeaderValue(h map[string]string, prefix, name string) string {
	return h[prefix+name]
}
