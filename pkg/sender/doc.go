// Package sender defines the channel sender contract and the built-in
// implementations: a Postmark-backed email sender, an HTTP webhook
// sender, and a file-writing development sender for channels without a
// configured provider.
//
// A sender makes exactly one delivery attempt per Send call; retry
// scheduling belongs to the delivery engine. Senders are collected in a
// Registry keyed by channel type, where the absence of a key is a
// first-class "sender not configured" condition.
//
// Usage:
//
//	registry := sender.NewRegistry()
//	registry.Register("EMAIL", emailSender)
//	registry.Register("WEBHOOK", sender.NewWebhookSender())
//	registry.Register("SMS", sender.NewDevSender("./outbox", "SMS"))
package sender
