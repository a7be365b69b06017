// Package audit records immutable action entries for every notification
// state transition: creation, reads, channel successes, scheduled retries
// and terminal failures.
//
// Entries are append-only. The Logger wraps a Storage backend and stamps
// each entry with an id and timestamp; MustLog downgrades storage failures
// to a log warning so audit writes never abort the delivery path.
//
// Usage:
//
//	log := audit.NewLogger(audit.NewMemoryStorage())
//	log.MustLog(ctx, notifID, audit.ActionChannelSuccess,
//	    audit.WithMetadata("channelType", "EMAIL"))
package audit
