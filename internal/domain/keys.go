package domain

import "strings"

// KeySeparator sits between the metric name and the caller-supplied key.
const KeySeparator = ":"

// StorageKey builds the composite key prefix+metric+":"+key. No escaping is applied.
func StorageKey(prefix, metric, key string) string {
	return prefix + metric + KeySeparator + key
}

// StorageKeys maps every caller key to its composite key, preserving order.
func StorageKeys(prefix, metric string, keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = StorageKey(prefix, metric, k)
	}
	return out
}

// TrimStorageKey recovers the caller key from a composite key built by StorageKey.
func TrimStorageKey(prefix, metric, storageKey string) (string, bool) {
	head := prefix + metric + KeySeparator
	if !strings.HasPrefix(storageKey, head) {
		return "", false
	}
	return storageKey[len(head):], true
}

// NewMeasurements returns a result map with every key set to def.
// Backends overlay the values they actually find.
func NewMeasurements(keys []string, def string) map[string]Sample {
	out := make(map[string]Sample, len(keys))
	for _, k := range keys {
		out[k] = Missing(def)
	}
	return out
}
