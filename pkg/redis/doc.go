// Package redis connects to Redis with retries and provides the distributed
// lock that keeps digest passes single-flight across service replicas.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	locker := redis.NewLocker(client, cfg.LockPrefix)
//
//	unlock, ok, err := locker.TryLock(ctx, "digest", time.Minute)
//	if err != nil || !ok {
//	    return err
//	}
//	defer unlock(context.Background())
//
// Healthcheck returns a check suitable for the HTTP readiness endpoint.
// Errors are sentinels joined with the go-redis cause.
package redis
