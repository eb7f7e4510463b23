package oasbind

// Route is one normalized entry in the route table: a (path, method) pair
// from the contract document plus everything needed to bind, dispatch, and
// shape its requests. Routes are built once at startup and never mutated.
type Route struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
	Description string

	Params      []Param
	RequestBody *Schema

	// Responses holds the success-family response schemas, keyed by exact
	// status code ("200"), the "2XX" range, or "default". A nil schema means
	// the response declared no JSON content.
	Responses map[string]*Schema

	// Version is the operation's API version, read from an _v<N> operationId
	// suffix or the document filename. Version 2 and up forces ISO rendering
	// of temporal-looking fields during response adaptation.
	Version int
}
