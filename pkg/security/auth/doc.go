/*
Package auth provides API key authentication for the call audit HTTP API.

Call history records carry request payloads and caller details, so the /api
routes can be restricted to known keys. Each key names the user it belongs
to; that user is put in the request context where the capture interceptor
picks it up as the record's user_id.

# Basic Usage

	validator := auth.NewAPIKeyValidator(auth.KeysFromConfig(cfg.Server.Auth.Keys))
	mw := auth.NewAPIKeyMiddleware(validator, auth.SourcesFromConfig(cfg.Server.Auth.Sources))

	r.With(mw.Handle).Route("/api/v1/call-history", callHistory.Routes)

Keys are looked up in the configured sources in order:

	server:
	  auth:
	    enabled: true
	    sources:
	      - type: header
	        name: X-API-Key
	      - type: header
	        name: Authorization
	        scheme: Bearer
	    keys:
	      - key: "k-3f9a..."
	        user_id: ops-dashboard

Rejected requests get 401 with the standard error body and a
WWW-Authenticate header. Replace swaps the key set in place, which is how
configuration reloads take effect without a restart.
*/
package auth
