// Package server assembles the engine, relay, session manager, and HTTP
// surface into a runnable service.
package server
