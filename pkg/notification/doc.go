// Package notification implements multi-channel notification delivery
// with per-channel retry tracking and an aggregated lifecycle status.
//
// A Notification fans out to one Channel per requested channel type
// (email, SMS, push, webhook). Each channel moves through its own state
// machine:
//
//	PENDING ──► SENDING ──► SUCCESS
//	   ▲           │
//	   │           ├──► RETRYING ──► SENDING ...
//	   │           │
//	RETRYING       └──► FAILED
//
// SUCCESS and FAILED are terminal. A delivery failure increments the
// channel's retry counter and schedules the next attempt using a
// backoff strategy; once the retry budget is exhausted the channel
// fails terminally. The notification's own status is derived from its
// channels: one successful channel is enough to mark it SENT, a
// notification with failures only becomes FAILED.
//
// The Service orchestrates creation, delivery, and the user-facing
// read operations. Persistence is abstracted behind NotificationStore
// and ChannelStore; MemoryStore provides an in-process implementation
// and the storage/postgres package a durable one. Concurrent delivery
// workers coordinate through ChannelStore.ClaimChannel, a
// compare-and-swap that makes each attempt exclusive.
//
// # Usage
//
//	store := notification.NewMemoryStore()
//	svc := notification.NewService(store, store,
//	    preference.NewMemoryStore(),
//	    template.NewMemoryStore(),
//	    registry,
//	)
//
//	n, err := svc.Send(ctx, notification.SendRequest{
//	    UserID:   "user-42",
//	    Title:    "Welcome",
//	    Body:     "Your account is ready.",
//	    Channels: []notification.ChannelType{notification.ChannelTypeEmail},
//	})
//
// Scheduled and retried deliveries are picked up by ProcessPending,
// normally driven by the scheduler package's loop:
//
//	loop := scheduler.NewLoop(svc, scheduler.WithInterval(time.Minute))
//	go loop.Run(ctx)
//
// Quiet hours configured on a user's preference defer delivery: a
// notification created inside the window is scheduled for shortly
// after the window closes instead of being dispatched immediately.
package notification
