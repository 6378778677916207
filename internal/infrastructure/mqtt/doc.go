// Package mqtt provides the optional MQTT event mirror.
//
// When enabled, hub events are republished to an external broker under the
// hublink/event/* topics so consumers outside the flow runtime can observe
// them. The mirror is one-way and best-effort: broker unavailability never
// affects core event routing.
package mqtt
