// Package template provides the notification template catalog and a pure
// variable substitution renderer.
//
// Templates are looked up by code and carry an optional subject and a body,
// both of which may contain {{variable}} placeholders. Rendering never
// fails: placeholders without a matching variable pass through unchanged.
//
// Usage:
//
//	store := template.NewMemoryStore()
//	_ = store.Put(ctx, template.Template{
//	    Code:    "ticket-confirmation",
//	    Subject: "Ticket #{{ticketId}} confirmed",
//	    Body:    "Hi {{name}}, your ticket #{{ticketId}} has been purchased.",
//	    Active:  true,
//	})
//
//	tpl, err := store.GetByCode(ctx, "ticket-confirmation")
//	body := template.Render(tpl.Body, map[string]string{
//	    "name":     "Ada",
//	    "ticketId": "42",
//	})
package template
