// Package exception turns errors into responses.
//
// A Handler reports an error (structured log write) and renders it into a
// response that is always valid. DefaultHandler negotiates JSON or plain
// text from the Accept header and hides details unless debug mode is on.
//
// Errors pick their status through a StatusCode() int method; HTTPError is
// the ready-made carrier:
//
//	return nil, exception.NewHTTPError(http.StatusForbidden, "Forbidden").
//		WithHeader("WWW-Authenticate", "Bearer")
//
// Recovered converts a recovered panic value into an error with the stack
// at the panic site.
package exception
