// Package oasbind turns a declarative API contract — an OpenAPI-style
// document — plus a table of plain handler functions into a fully wired HTTP
// service. The contract is the source of truth: routes, parameter binding,
// response shaping, and error bodies are all derived from it.
//
// A service is assembled from a parsed document and a handler table keyed by
// operationId:
//
//	doc, err := oasbind.LoadDocument("users.yaml")
//	svc, err := oasbind.New(doc, oasbind.Handlers{
//	    "list_users": listUsers,
//	    "get_user":   getUser,
//	}, oasbind.WithAuth(oasbind.NewAPIKeyAuth(oasbind.CredentialList("k1", "k2"))))
//
// Handlers receive a merged Input mapping — path parameters, query
// parameters, and body fields in one namespace, coerced per the declared
// schemas — and return a payload, or a *Result to pin a status code:
//
//	func getUser(ctx context.Context, in oasbind.Input) (any, error) {
//	    u, ok := store.Get(in.String("user_id"))
//	    if !ok {
//	        return nil, oasbind.Errorf(oasbind.KindNotFound, "User %s not found", in.String("user_id"))
//	    }
//	    return u, nil
//	}
//
// Successful payloads are reshaped to the declared response schema; failures
// become RFC 9457 problem-detail bodies with a fixed kind-to-status mapping
// and a fail-closed 500 for anything unrecognized.
//
// Middleware uses the standard func(http.Handler) http.Handler signature,
// so the entire Go middleware ecosystem works natively.
package oasbind
