// Package handler defines the request-level vocabulary shared by the router,
// the kernel and middleware: handlers that turn a request into a response,
// and middleware stages that wrap them.
//
// Both are thin aliases over package pipeline specialized to
// *http.Request and *response.Response.
package handler
