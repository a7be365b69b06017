// Package redis connects the optional Redis instance backing the
// unread-count cache. Connect retries until the server is reachable so
// the service can start alongside its dependencies.
package redis
