// Package state keeps per-user conversation values for multi-step Telegram flows.
// It knows nothing about the flows themselves: a bot picks the value type and
// a backend (process memory or Redis) and owns every write.
package state
