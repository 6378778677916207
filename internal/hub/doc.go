// Package hub is the connectivity core for a Hubitat hub.
//
// It provides the throttled Maker API client, the inbound event transports
// (a reconnecting websocket client and a webhook receiver), Hub Safety
// Monitor state normalisation, and the Dispatch routine that updates the
// device cache and fans events out to bus topics.
package hub
