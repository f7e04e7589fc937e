// Package handlers implements the HTTP handlers of the call audit API and
// the shared error response format.
//
// Every error is written as an ErrorResponse. NotFound maps to 404, errors
// that expose StatusCode() int use that code (409 for duplicate examples),
// bad parameters and query errors map to 400, and everything else to 500
// with the cause kept out of the response body.
package handlers
