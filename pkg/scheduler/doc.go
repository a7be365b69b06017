// Package scheduler drives periodic notification delivery sweeps.
//
// A Loop invokes its Processor on a fixed interval (default one
// minute), starting with an immediate sweep. Each sweep picks up due
// pending notifications and retry-eligible channels; the claim-based
// channel state transitions make sweeps safe to run concurrently with
// the synchronous immediate-dispatch path.
//
//	loop, err := scheduler.NewLoop(svc,
//	    scheduler.WithInterval(time.Minute),
//	    scheduler.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := loop.Start(ctx); err != nil {
//	    return err
//	}
//	defer loop.Stop()
package scheduler
