// Package digest implements the periodic pass that emails each user one
// plain-text digest of their pending notifications.
//
// A notification is pending when it has the EMAIL bit and none of SENT,
// READ or REMOVED, and it is at least MinAge old. The pass walks through
// the phases idle, selecting, then batching, sending and marking for every
// user, and back to idle:
//
//	d, err := digest.NewDispatcher(store, store, directory, sender,
//	    digest.WithConfig(cfg),
//	    digest.WithLocker(redis.NewLocker(client, "notifykit:lock:")),
//	)
//	report, err := d.RunPass(ctx)
//
// Only a successful send marks the batch SENT and updates the statistics.
// A failed or timed out send leaves every bit untouched, so the next pass
// retries it. When marking fails after a successful send the same items can
// be emailed twice; delivery is at least once.
//
// RunPass returns ErrPassInProgress while another pass of the same
// Dispatcher is running. With a Locker, a pass that cannot take the shared
// lock reports Skipped.
package digest
