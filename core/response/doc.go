// Package response provides the immutable HTTP response value used by the
// routing core.
//
// A Response is never mutated in place: every With* method returns a copy,
// so middleware can decorate the result of next without affecting values
// held by other stages.
//
//	res := response.String("hello").
//		WithStatus(http.StatusCreated).
//		WithHeader("X-Request-ID", id)
//
// Prepare normalizes arbitrary action results:
//
//   - *Response is passed through.
//   - string is written verbatim as text/plain.
//   - []byte is written verbatim with a sniffed content type.
//   - fmt.Stringer is written as its string form.
//   - maps, slices, arrays, structs and json.Marshaler values are encoded as
//     indented JSON with an application/json content type.
//   - any other scalar is formatted with fmt.Sprint.
package response
