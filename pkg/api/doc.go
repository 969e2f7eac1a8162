// Package api serves the notification engine as a JSON HTTP API for other
// services: recording events, cascading removals, reading and marking a
// user's notifications, preferences, digest contacts, and maintenance runs.
//
// Every body is wrapped in Response. Errors carry a stable code:
//
//	{"error": {"code": "validation_error", "message": "...", "details": {"event": ["unknown event type"]}}}
//
// The API trusts its callers; put it behind the platform's service network.
package api
