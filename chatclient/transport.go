// Package chatclient is the realtime composition layer used by showroom
// frontends. It joins conversation rooms, merges message events arriving
// from the websocket change feed and the AMQP push channel into a single
// de-duplicated list, tracks typing indicators, and sends messages and
// typing signals back over authenticated HTTP.
package chatclient

import "showroom-chat/internal/models"

// Subscription is a live feed of events for one conversation on one
// transport. Close releases the underlying connection; it must be safe to
// call more than once.
type Subscription interface {
	Close() error
}

// Transport opens per-conversation event subscriptions. Implementations
// deliver at least once and may duplicate events already delivered by
// another transport; receivers de-duplicate by message id.
type Transport interface {
	Name() string
	Subscribe(conversationID, kind string, fn func(models.ChatEvent)) (Subscription, error)
}
