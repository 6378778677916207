// Package nodes provides the capability node adapters a flow runtime
// embeds: thin bridges between the hub's event bus / Maker API client and
// the runtime's message passing.
//
// Listener nodes (Event, Device, Location, Mode, Hsm) subscribe to bus
// topics and forward events as messages; actuator nodes (Command, Request,
// ModeSetter, HsmSetter) translate inbound messages into Maker API calls.
// Nodes never panic into the host; failures are reported through the Done
// callback.
package nodes
