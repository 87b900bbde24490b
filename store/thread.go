package store

import "time"

// Thread groups messages belonging to one conversation. A thread is created
// implicitly by the first message of a chain and is never created directly.
type Thread struct {
	ID      string
	Subject string

	// MessageCount counts every message in the thread, approved or not.
	MessageCount int64

	LastMessageAt time.Time
	CreatedAt     time.Time
}

// ThreadList represents a paginated list of threads.
type ThreadList struct {
	Threads []*Thread
	Total   int64
	HasMore bool
}
