// Shrike is an email-domain validation engine.
//
// Given an email address, it checks the domain's ability to receive mail
// (MX records), its anti-spoofing posture (SPF and DMARC policy records),
// whether it belongs to a disposable/temporary email provider, and where
// its primary mail exchanger is located, then folds these facts into a
// safety verdict.
//
// # Validator
//
//	v := shrike.NewValidator(shrike.Config{})
//	result, err := v.Validate(ctx, "user@example.com")
//
// Within one request the MX, SPF and DMARC lookups and the disposable
// check run concurrently; geolocation follows MX resolution. Results are
// cached per domain with a TTL, and concurrent requests for the same
// domain share a single upstream lookup. When lookups exceed the request
// budget the validator answers with the facts gathered so far and lets the
// lookup finish in the background to warm the cache.
//
// # Server
//
// The HTTP front end exposes the engine as POST /validate:
//
//	srv := shrike.NewServer(v, shrike.ServerConfig{Addr: ":8081"})
//	if err := srv.ListenAndServe(); err != shrike.ErrServerClosed {
//	    log.Fatal(err)
//	}
//
// Request body {"email": "..."}; the response mirrors the facts plus the
// verdict. Syntactically invalid input yields 400, a total resolver outage
// with no cached facts yields 503, and degraded (partial) lookups still
// yield 200 with best-effort fields.
package shrike
