// Package dispatch routes discovered links to their handlers.
//
// Routing is two steps. A Classifier maps a URL to a model.ResourceKind by
// matching path markers in a fixed priority order. A Dispatcher then claims
// the link's VisitKey and looks the kind up in a Table of handlers supplied
// by the crawl engine. Keeping the pattern list apart from the handlers
// lets each be tested on its own.
//
//	d := dispatch.New(dispatch.Classifier{Base: base, RootID: "123"}, visited, dispatch.Table{
//		model.KindFile: downloadFile,
//	})
//	err := d.Dispatch(ctx, dispatch.Request{Link: link, Section: "Unidad 1"})
package dispatch
