// Package event provides the typed publish/subscribe channel between the
// hub connectivity core and its consumers.
//
// The Bus replaces the historical per-device callback table (and its
// sentinel-id multiplexing of mode and location events) with named topics:
//
//	event               all hub events, unfiltered
//	device.<id>         events for one device
//	mode                hub mode changes
//	hsm                 Hub Safety Monitor events
//	location            location events
//	systemStart         hub reboot signal
//	websocket-opened    event socket connected
//	websocket-closed    event socket disconnected
//	websocket-error     event socket error
//
// Event is the wire envelope shared by the webhook and WebSocket
// transports. Dispatch from an inbound envelope onto these topics is the
// hub package's job; this package only carries and fans out.
package event
