// Package runtime wires storage, config, and facades into a single-node
// filings instance. It opens the id counter store and the filings database,
// builds the allocator, dispatcher and service, and exposes health checks.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	go rt.Run(ctx)
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	res, _ := rt.Service().Create(ctx, []filings.Filing{{Source: "edgar", AccessionNo: "0000320193-25-000007"}})
package runtime
