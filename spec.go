package oasbind

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSpecLoad wraps every load-time failure: a malformed document, a missing
// or duplicate operationId, or a path template that disagrees with its
// declared parameters. These are configuration bugs and abort startup.
var ErrSpecLoad = errors.New("spec load")

// Document is a parsed contract document. YAML and JSON are both accepted
// (a JSON document is valid YAML). Documents are immutable once parsed.
type Document struct {
	OpenAPI string              `yaml:"openapi"`
	Info    Info                `yaml:"info"`
	Paths   map[string]PathItem `yaml:"paths"`

	fileVersion int
}

// Info is the contract's info block. Title doubles as the default service name.
type Info struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// PathItem holds the operations declared under one path template, plus any
// path-level parameters shared by all of them.
type PathItem struct {
	Get     *Operation `yaml:"get"`
	Post    *Operation `yaml:"post"`
	Put     *Operation `yaml:"put"`
	Patch   *Operation `yaml:"patch"`
	Delete  *Operation `yaml:"delete"`
	Head    *Operation `yaml:"head"`
	Options *Operation `yaml:"options"`

	Parameters []Param `yaml:"parameters"`
}

// Operation is one declared (path, method) entry.
type Operation struct {
	OperationID string              `yaml:"operationId"`
	Summary     string              `yaml:"summary"`
	Description string              `yaml:"description"`
	Parameters  []Param             `yaml:"parameters"`
	RequestBody *RequestBody        `yaml:"requestBody"`
	Responses   map[string]Response `yaml:"responses"`
}

// Param declares where in a request a named value is read from and how it is
// coerced.
type Param struct {
	Name     string  `yaml:"name"`
	In       string  `yaml:"in"` // "path", "query", or "header"
	Required bool    `yaml:"required"`
	Schema   *Schema `yaml:"schema"`
}

// RequestBody is the declared request body, keyed by content type.
type RequestBody struct {
	Required bool                 `yaml:"required"`
	Content  map[string]MediaType `yaml:"content"`
}

// Response is one declared response, keyed by content type.
type Response struct {
	Description string               `yaml:"description"`
	Content     map[string]MediaType `yaml:"content"`
}

// MediaType carries the schema for one content type.
type MediaType struct {
	Schema *Schema `yaml:"schema"`
}

// Schema is the documented subset of JSON Schema that drives parameter
// coercion and response shaping.
type Schema struct {
	Type       string             `yaml:"type"` // object, array, string, integer, number, boolean
	Format     string             `yaml:"format"`
	Properties map[string]*Schema `yaml:"properties"`
	Required   []string           `yaml:"required"`
	Items      *Schema            `yaml:"items"`
	Default    any                `yaml:"default"`
	Enum       []any              `yaml:"enum"`
}

// ParseDocument parses a contract document from YAML or JSON bytes.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpecLoad, err)
	}
	if len(doc.Paths) == 0 {
		return nil, fmt.Errorf("%w: document declares no paths", ErrSpecLoad)
	}
	return &doc, nil
}

// LoadDocument reads and parses a contract document from disk. A `_v<N>`
// suffix on the filename (users_v2.yaml) sets the document-level version.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-provided spec path
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpecLoad, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	doc.fileVersion = versionFromFilename(path)
	return doc, nil
}

// specMethods is the fixed method order routes are extracted in, so the route
// table is deterministic for a given document.
var specMethods = []string{"get", "post", "put", "patch", "delete", "head", "options"}

func (p *PathItem) operation(method string) *Operation {
	switch method {
	case "get":
		return p.Get
	case "post":
		return p.Post
	case "put":
		return p.Put
	case "patch":
		return p.Patch
	case "delete":
		return p.Delete
	case "head":
		return p.Head
	case "options":
		return p.Options
	default:
		return nil
	}
}

// Routes extracts the normalized route table from the document. It fails when
// any operation lacks an operationId, when two operations share one, or when
// a path template's {name} placeholders disagree with the declared
// path-location parameters.
func (d *Document) Routes() ([]Route, error) {
	paths := make([]string, 0, len(d.Paths))
	for p := range d.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var routes []Route
	seen := make(map[string]string) // operationId -> "METHOD path"

	for _, path := range paths {
		item := d.Paths[path]
		for _, method := range specMethods {
			op := item.operation(method)
			if op == nil {
				continue
			}

			upper := strings.ToUpper(method)
			if op.OperationID == "" {
				return nil, fmt.Errorf("%w: missing operationId for %s %s", ErrSpecLoad, upper, path)
			}
			if prev, ok := seen[op.OperationID]; ok {
				return nil, fmt.Errorf("%w: duplicate operationId %q (%s and %s %s)",
					ErrSpecLoad, op.OperationID, prev, upper, path)
			}
			seen[op.OperationID] = upper + " " + path

			params := mergeParams(item.Parameters, op.Parameters)
			if err := checkPathParams(path, params); err != nil {
				return nil, err
			}

			version := versionFromOperationID(op.OperationID)
			if version <= 1 && d.fileVersion > 1 {
				version = d.fileVersion
			}
			if version < 1 {
				version = 1
			}

			routes = append(routes, Route{
				Path:        path,
				Method:      upper,
				OperationID: op.OperationID,
				Summary:     op.Summary,
				Description: op.Description,
				Params:      params,
				RequestBody: contentSchema(bodyContent(op.RequestBody)),
				Responses:   successSchemas(op.Responses),
				Version:     version,
			})
		}
	}

	return routes, nil
}

// mergeParams combines path-item-level and operation-level parameters.
// An operation-level parameter overrides a path-level one with the same
// name and location.
func mergeParams(pathLevel, opLevel []Param) []Param {
	merged := make([]Param, 0, len(pathLevel)+len(opLevel))
	for _, p := range pathLevel {
		overridden := false
		for _, o := range opLevel {
			if o.Name == p.Name && o.In == p.In {
				overridden = true
				break
			}
		}
		if !overridden {
			merged = append(merged, p)
		}
	}
	return append(merged, opLevel...)
}

var placeholderRe = regexp.MustCompile(`\{([^}]+)\}`)

// checkPathParams verifies the {name} placeholders in a path template match
// the declared path-location parameters exactly, in both directions.
func checkPathParams(path string, params []Param) error {
	declared := make(map[string]bool)
	for _, p := range params {
		if p.In == "path" {
			declared[p.Name] = true
		}
	}

	inTemplate := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		inTemplate[m[1]] = true
		if !declared[m[1]] {
			return fmt.Errorf("%w: path %s has placeholder {%s} with no declared path parameter", ErrSpecLoad, path, m[1])
		}
	}
	for name := range declared {
		if !inTemplate[name] {
			return fmt.Errorf("%w: path %s declares path parameter %q with no matching placeholder", ErrSpecLoad, path, name)
		}
	}
	return nil
}

func bodyContent(rb *RequestBody) map[string]MediaType {
	if rb == nil {
		return nil
	}
	return rb.Content
}

// contentSchema reduces a content map to its JSON schema, falling back to the
// first available content type when JSON is absent.
func contentSchema(content map[string]MediaType) *Schema {
	if len(content) == 0 {
		return nil
	}
	if mt, ok := content["application/json"]; ok && mt.Schema != nil {
		return mt.Schema
	}
	types := make([]string, 0, len(content))
	for ct := range content {
		types = append(types, ct)
	}
	sort.Strings(types)
	for _, ct := range types {
		if content[ct].Schema != nil {
			return content[ct].Schema
		}
	}
	return nil
}

// successSchemas keeps only the success-family responses: exact 2xx codes,
// the "2XX" range key, and the "default" fallback.
func successSchemas(responses map[string]Response) map[string]*Schema {
	out := make(map[string]*Schema)
	for code, resp := range responses {
		if strings.HasPrefix(code, "2") || code == "default" {
			out[code] = contentSchema(resp.Content)
		}
	}
	return out
}

var versionSuffixRe = regexp.MustCompile(`_v(\d+)$`)

// versionFromOperationID reads a trailing _v<N> suffix: get_user_v2 -> 2.
// Returns 0 when no suffix is present.
func versionFromOperationID(id string) int {
	m := versionSuffixRe.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// versionFromFilename reads a trailing _v<N> on the filename stem:
// users_v2.yaml -> 2. Returns 0 when no suffix is present.
func versionFromFilename(path string) int {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return versionFromOperationID(stem)
}
