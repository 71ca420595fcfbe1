// Package telemetry counts hover, click, and scroll trigger events.
package telemetry
