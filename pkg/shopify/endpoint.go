package shopify

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultNamespace prefixes every request path.
const DefaultNamespace = "admin"

const formatSuffix = ".json"

// Endpoint builds a request path:
//
//	/<namespace>/<template with params>/<suffix>/<action>.json
//
// Params fill the template's "%s" placeholders in order; extras are ignored
// and a missing or empty one fails with *MissingPathParameterError.
//
// Only empty segments are dropped: an id of "0" is a real segment, so
// /admin/orders/0.json never collapses to /admin/orders.json.
//
// Params, suffix and action are path-escaped piece by piece; slashes in the
// suffix still separate segments, so asset keys like templates/index.liquid
// keep their shape while "#", "?" and spaces are encoded.
func Endpoint(namespace, template string, params []string, suffix, action string) (string, error) {
	resolved, err := expandTemplate(template, params)
	if err != nil {
		return "", err
	}

	segments := make([]string, 0, 4)
	for _, s := range []string{namespace, resolved, escapePath(suffix), escapePath(action)} {
		s = strings.Trim(s, "/")
		if s == "" {
			continue
		}
		segments = append(segments, s)
	}
	return "/" + strings.Join(segments, "/") + formatSuffix, nil
}

func expandTemplate(template string, params []string) (string, error) {
	want := strings.Count(template, "%s")
	if want == 0 {
		return template, nil
	}

	args := make([]any, want)
	for i := range want {
		if i >= len(params) || params[i] == "" {
			return "", &MissingPathParameterError{Template: template, Want: want, Got: countPresent(params)}
		}
		args[i] = url.PathEscape(params[i])
	}
	return fmt.Sprintf(template, args...), nil
}

// escapePath escapes each "/"-separated piece of p, dropping empty pieces.
func escapePath(p string) string {
	pieces := strings.Split(p, "/")
	kept := pieces[:0]
	for _, piece := range pieces {
		if piece != "" {
			kept = append(kept, url.PathEscape(piece))
		}
	}
	return strings.Join(kept, "/")
}

func countPresent(params []string) int {
	n := 0
	for _, p := range params {
		if p != "" {
			n++
		}
	}
	return n
}

// joinSegments joins non-empty path pieces with "/".
func joinSegments(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
