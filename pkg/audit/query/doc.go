// Package query implements the read side of the call history.
//
// Service validates each request before it reaches storage, fills in the
// default page size, and turns a missing record into *audit.NotFoundError so
// that transports can map it to a 404. Invalid input yields *audit.QueryError.
//
// Listings use whole-page pagination: an offset that is not a multiple of
// the limit is rounded down to the start of its page.
package query
