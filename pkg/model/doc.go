// Package model implements the LwM2M client data model.
//
// # Object Model Hierarchy
//
// LwM2M uses a 3-level hierarchy, with an optional fourth level for
// multiple-instance resources:
//
//	Object > Object Instance > Resource > Resource Instance
//
// An Object is a type (Device is 3, Temperature is 3303). An Object
// Instance is one concrete occurrence of it, and Resources are the data
// items inside an instance:
//
//	Registry
//	├── /1     Server
//	│   └── /1/1
//	│       ├── /1/1/0  Short Server ID
//	│       └── /1/1/1  Lifetime
//	├── /3     Device
//	│   └── /3/0
//	│       ├── /3/0/0  Manufacturer
//	│       └── /3/0/6  Available Power Sources
//	│           └── /3/0/6/0
//	└── /3303  Temperature
//	    └── /3303/0
//	        └── /3303/0/5700  Sensor Value
//
// # Addressing
//
// A Path is parsed from its slash-delimited form ("/3/0/13"). Its Level
// tells how deep it points; "/" is the root.
//
// # Values
//
// Each resource of an instance is backed by a Source. Static sources never
// change, Func sources are recomputed on every read (current time), and
// Cell sources hold a value that a background task replaces atomically
// (sensor readings). Readers always see a whole value, never a partial
// update.
//
// # Access Control
//
// Resource definitions carry an operation mask (Read, Write, Execute).
// Only readable resources produce values; executable-only resources are
// still listed by discovery.
package model
