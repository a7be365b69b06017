// Package preference manages per-user notification settings: channel
// opt-ins, contact addresses, and an optional quiet-hours window.
//
// A preference row is created lazily with defaults (email enabled, all
// other channels off) on a user's first notification, so resolving a
// preference never fails for an unknown user.
//
// Quiet hours are a time-of-day window that may wrap midnight. While the
// window is open, the delivery engine defers sends to one minute past the
// window's end:
//
//	pref.QuietHours = &preference.QuietHours{
//	    Start: preference.NewTimeOfDay(22, 0),
//	    End:   preference.NewTimeOfDay(6, 0),
//	}
package preference
