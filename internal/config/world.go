package config

import "time"

// WatchConfig controls auto-detect regeneration.
type WatchConfig struct {
	// Debounce is the quiet period after the last file change before
	// tests are regenerated.
	Debounce string `yaml:"debounce"`
}

// GetDebounce returns the debounce window.
func (c *WatchConfig) GetDebounce() time.Duration {
	return parseDuration(c.Debounce, time.Second)
}
