// Package miniapi is a small HTTP and WebSocket dispatch layer. A transport
// hands each inbound exchange to App.Serve as a Scope plus receive and send
// functions; the App routes it, binds request data onto a typed handler,
// runs middleware and writes exactly one response.
//
// Handlers are plain generic functions:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (Resp, error)
//
// Routes use ":name" segments for path parameters:
//
//	app := miniapi.New()
//	miniapi.Get(app, "/items/:id", getItem)
//	miniapi.Post(app, "/items", createItem, miniapi.WithStatus(http.StatusCreated))
//
// Each exported field of Req is one parameter, named by its `param` tag or
// its lower-cased field name. Scalars bind from the path first, then the
// query string, then a `default` tag; pointer fields are optional. Struct
// fields are validated values built from the query merged with the JSON
// body and checked with `validate` tags and the SelfValidator interface.
// Fields of type *Request or Headers receive the request itself.
//
//	type GetItemReq struct {
//	    ID      int
//	    Verbose bool `default:"false"`
//	}
//
// Binding failures produce 400, unknown routes 404, handler errors 500 unless
// they implement StatusCoder. OPTIONS requests always get 204.
//
// WebSocket handlers either take the connection or take nothing:
//
//	miniapi.WebSocket(app, "/chat", func(ctx context.Context, c *miniapi.WebSocketConnection) error { ... })
//
// App also implements http.Handler, so it can be served with net/http:
//
//	app.ListenAndServe(ctx, ":8080")
package miniapi
