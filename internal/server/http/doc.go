// Package httpserver is the REST gateway for the filings service. Routes are
// registered by the controllers package on a gorilla/mux router; every
// request carries a request id taken from X-Request-ID or generated.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
