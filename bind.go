package oasbind

import (
	"io"
	"net/http"
	"strconv"
)

// Input is the merged, coerced parameter/body mapping passed to a handler.
//
// Sources are applied in a fixed order independent of how the contract
// declares them: path parameters, then query, then header, then request-body
// fields. The last writer wins on a name collision, so body > query > path.
// The auth context, when present, lives under the "auth" key and is added
// after every other source.
type Input map[string]any

// authInputKey is where a successful authenticator's context is stored.
const authInputKey = "auth"

// Auth returns the authentication context and whether one is present.
// Absence means no authenticator is configured; a configured authenticator
// that fails never reaches the handler at all.
func (in Input) Auth() (AuthContext, bool) {
	ac, ok := in[authInputKey].(AuthContext)
	return ac, ok
}

// String returns the value under key if it is a string, or "".
func (in Input) String(key string) string {
	s, _ := in[key].(string)
	return s
}

// Int returns the value under key as an int, accepting the numeric types a
// parsed parameter or JSON body can produce. Returns 0 for anything else.
func (in Input) Int(key string) int {
	switch v := in[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// bindLocations is the fixed order parameter sources are applied in. The
// request body merges after all three, so on a name collision the precedence
// is body > header > query > path regardless of declaration order.
var bindLocations = []string{"path", "query", "header"}

// bindInput builds the merged input for one request against a route's
// declared parameters. It fails with a KindValidation error when a required
// parameter is absent or a raw value cannot be coerced to its declared type;
// the handler is never invoked in that case.
func bindInput(route Route, r *http.Request) (Input, error) {
	in := make(Input, len(route.Params)+4)

	for _, loc := range bindLocations {
		for _, p := range route.Params {
			if p.In != loc {
				continue
			}
			raw, ok := rawParamValue(p, r)
			if !ok {
				if p.Required {
					return nil, Errorf(KindValidation, "missing required %s parameter %q", p.In, p.Name)
				}
				// A default only fills a name nothing has bound yet; a real
				// value from an earlier source is kept.
				if _, bound := in[p.Name]; !bound && p.Schema != nil && p.Schema.Default != nil {
					in[p.Name] = p.Schema.Default
				}
				continue
			}

			v, err := coerceParam(raw, p.Schema)
			if err != nil {
				return nil, Errorf(KindValidation, "invalid %s parameter %q: %v", p.In, p.Name, err)
			}
			in[p.Name] = v
		}
	}

	if hasRequestBody(route.Method) {
		if err := mergeBody(in, r); err != nil {
			return nil, err
		}
	}

	return in, nil
}

// rawParamValue reads the raw string for a declared parameter from its
// location. The second return reports presence, so an empty-but-present
// query value still binds.
func rawParamValue(p Param, r *http.Request) (string, bool) {
	switch p.In {
	case "path":
		v := r.PathValue(p.Name)
		return v, v != ""
	case "query":
		vals, ok := r.URL.Query()[p.Name]
		if !ok || len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	case "header":
		v := r.Header.Get(p.Name)
		return v, v != ""
	default:
		return "", false
	}
}

// coerceParam converts a raw string to the parameter's declared primitive
// type. Parameters without a schema (or with a non-primitive type) bind as
// plain strings.
func coerceParam(raw string, s *Schema) (any, error) {
	if s == nil {
		return raw, nil
	}
	switch s.Type {
	case "integer":
		return strconv.Atoi(raw)
	case "number":
		return strconv.ParseFloat(raw, 64)
	case "boolean":
		return strconv.ParseBool(raw)
	default:
		return raw, nil
	}
}

// hasRequestBody reports whether the method carries a request body.
func hasRequestBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// mergeBody merges request-body fields into the input. Body fields arrive
// already structured from JSON decoding and are not passed through string
// coercion. A body that is not valid JSON binds raw under "body", as does a
// valid non-object body.
func mergeBody(in Input, r *http.Request) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return Errorf(KindValidation, "reading request body: %v", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var body any
	if err := jsonUnmarshal(raw, &body); err != nil {
		in["body"] = string(raw)
		return nil
	}
	obj, ok := body.(map[string]any)
	if !ok {
		in["body"] = body
		return nil
	}
	for k, v := range obj {
		in[k] = v
	}
	return nil
}
