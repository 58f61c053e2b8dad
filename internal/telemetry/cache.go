package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Sample is one (timestamp, value) observation for a metric key.
type Sample struct {
	Timestamp time.Time `json:"ts"`
	Value     Value     `json:"value"`
}

// Cache holds the latest sample per (device, metric key).
//
// A sample replaces the stored one only when its timestamp is strictly newer;
// older or equal timestamps are discarded, so out-of-order and re-delivered
// messages never roll a metric back.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Only the message router
//     writes; widgets and the API read.
type Cache struct {
	mu       sync.RWMutex
	byDevice map[string]map[string]Sample
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		byDevice: make(map[string]map[string]Sample),
	}
}

// Record stores the sample unless an equal-or-newer one is already cached.
// It returns true when the sample was stored.
func (c *Cache) Record(deviceID, key string, ts time.Time, v Value) bool {
	if !v.IsValid() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	metrics, ok := c.byDevice[deviceID]
	if !ok {
		metrics = make(map[string]Sample)
		c.byDevice[deviceID] = metrics
	}

	if cur, exists := metrics[key]; exists && !ts.After(cur.Timestamp) {
		return false
	}

	metrics[key] = Sample{Timestamp: ts, Value: v}
	return true
}

// Latest returns the cached sample for (deviceID, key).
func (c *Cache) Latest(deviceID, key string) (Sample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.byDevice[deviceID][key]
	return s, ok
}

// AllLatest returns a copy of every cached sample for deviceID.
// The map is empty (never nil) for unknown devices.
func (c *Cache) AllLatest(deviceID string) map[string]Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	metrics := c.byDevice[deviceID]
	out := make(map[string]Sample, len(metrics))
	for k, s := range metrics {
		out[k] = s
	}
	return out
}

// Keys returns the metric keys seen for deviceID, sorted.
func (c *Cache) Keys(deviceID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.byDevice[deviceID]))
	for k := range c.byDevice[deviceID] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Devices returns the ids of devices with at least one cached sample, sorted.
func (c *Cache) Devices() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.byDevice))
	for id := range c.byDevice {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the total number of cached samples.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, metrics := range c.byDevice {
		n += len(metrics)
	}
	return n
}

// Reset drops every cached sample (e.g. on logout).
func (c *Cache) Reset() {
	c.mu.Lock()
	c.byDevice = make(map[string]map[string]Sample)
	c.mu.Unlock()
}
