// Package pipeline provides a generic onion-style executor that sends a
// payload through an ordered list of stages before reaching a terminal
// handler.
//
// The first stage is the outermost wrapper: it runs first on the way in and
// last on the way out. A stage may transform the payload, short-circuit by
// not calling next, or return an error, which unwinds the remaining chain
// without running later stages.
//
// # Usage
//
//	res, err := pipeline.Send[*http.Request, *response.Response](req).
//		Through(requestID, logging).
//		Then(func(r *http.Request) (*response.Response, error) {
//			return response.String("ok"), nil
//		})
//
// A built chain can be kept and invoked many times:
//
//	next := pipeline.Chain(terminal, stages...)
//	res, err := next(req)
package pipeline
