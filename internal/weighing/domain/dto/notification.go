package dto

import "time"

// Broker topology shared by the publisher and the notification subscriber.
const (
	NotificationExchange = "notifications"
	NotificationQueue    = "bin_notifications"
)

const (
	KindScheduled = "scheduled"
	KindImmediate = "immediate"
)

// NotificationMessage is the body published for every bin notification.
type NotificationMessage struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	FireAt time.Time `json:"fire_at"`
	SentAt time.Time `json:"sent_at"`
}
