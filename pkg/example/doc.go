// Package example is a small registry of people identified by DNI. It is
// the reference client of the audit pipeline: every operation runs through
// capture.Intercept, so each create, lookup and listing leaves a record in
// the call history.
//
// Routes (mounted under /api/v1/examples):
//
//	POST /              create; 400 on invalid fields, 409 on a duplicate DNI
//	GET  /              list every example
//	GET  /dni/{dni}     look up by DNI; 404 when unknown
//
// Create requests are audited with the CREATE_EXAMPLE action and have their
// password and token fields masked in the stored payload.
package example
