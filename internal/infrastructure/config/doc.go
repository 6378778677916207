// Package config handles loading and validation of hublink configuration.
//
// Configuration is read from a YAML file with three layers of precedence:
// hardcoded defaults, file values, then HUBLINK_* environment variables.
// The hub section identifies exactly one Maker API server; a hublink
// process hosts one connectivity core per configuration.
//
// Validation is strict for the hub identity fields (host, port, app id,
// token): a misconfigured hub is rejected at startup before any request
// is attempted.
package config
