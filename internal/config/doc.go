// Package config loads and watches the overlay's TOML configuration.
//
// A missing config file is not an error; defaults cover every field.
// The prompt-marker table is the one section expected to change while
// a session is running, so Watch reloads the file on change and
// publishes the new Config without a restart.
package config
