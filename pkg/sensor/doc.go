// Package sensor supplies live readings for dynamic resources.
//
// A Source produces the current reading. RandomWalk simulates a temperature
// probe; Fallback absorbs source failures with a fixed default; Sampler
// copies readings into registry cells on a schedule so that reads never
// block on the probe.
package sensor
