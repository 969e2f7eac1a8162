// Package notifications turns domain events into per-recipient notifications
// and tracks them through a monotonic status bit set.
//
// # Architecture
//
// The package is built from a few cooperating parts:
//
//   - EventType: the closed catalog of event types with their static data.
//   - Status: the EMAIL / SENT / READ / REMOVED bit set. Bits are only added.
//   - Storage, PreferenceStore, StatsStore: persistence contracts with
//     in-memory implementations; SQL backends live in sub-packages.
//   - Manager: fan-out of events to opted-in recipients and the read/removed
//     lifecycle operations.
//
// The digest email job lives in the digest package and reads the same Storage.
//
// # Basic Usage
//
//	storage := notifications.NewMemoryStorage()
//	prefs := notifications.NewMemoryPreferenceStore()
//	manager := notifications.NewManager(storage, prefs)
//
//	_ = manager.SetPreferences(ctx, notifications.Preferences{
//	    UserID: 42,
//	    Notify: notifications.AllEvents,
//	    Email:  notifications.NewEventSet(notifications.EventForumReply),
//	})
//
//	queued, err := manager.RecordEvent(ctx, notifications.Event{
//	    Type:      notifications.EventForumReply,
//	    FromUser:  7,
//	    SourceRef: postID,
//	    Location:  notifications.Location{Course: 12},
//	}, []int64{42})
//
//	// The user opens the thread.
//	manager.MarkReadBySource(ctx, 42, notifications.EventForumReply, postID)
//
// # Status
//
// Status.Derived collapses the bits to what the user sees:
//
//	SENT set                      -> sent
//	EMAIL unset                   -> no_email
//	READ or REMOVED set           -> cancelled
//	otherwise                     -> pending
//
// Every status update is expressed as "OR these bits" so concurrent writers
// converge to the union regardless of order.
package notifications
