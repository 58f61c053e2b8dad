// Package telemetry holds the latest-value telemetry cache.
//
// The cache keeps exactly one Sample per (device, metric key): the newest by
// device timestamp. It is not a time-series store; history is never kept.
//
//	cache := telemetry.NewCache()
//	cache.Record("esp32-001", "temp", ts, telemetry.Number(22))
//	s, ok := cache.Latest("esp32-001", "temp")
package telemetry
