// Package topic maps device identifiers to the MQTT topics they own and
// parses inbound topics back into (device id, channel).
//
// Every device owns six topics under one namespace:
//
//	saphari/devices/{deviceId}/status
//	saphari/devices/{deviceId}/telemetry
//	saphari/devices/{deviceId}/events
//	saphari/devices/{deviceId}/shadow/report
//	saphari/devices/{deviceId}/shadow/get
//	saphari/devices/{deviceId}/cmd
//
// All functions are pure and safe for concurrent use.
package topic
