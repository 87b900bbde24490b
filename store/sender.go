package store

import "time"

// ApprovedSender is an allow-list entry. Addresses are stored lowercased;
// matching against message senders is case-insensitive.
type ApprovedSender struct {
	Email     string
	Name      string
	CreatedAt time.Time
}
