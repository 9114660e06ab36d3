package stats

import "time"

// UserStats aggregates account counts for the dashboard.
type UserStats struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Admins       int `json:"admins"`
	NewThisMonth int `json:"newThisMonth"`
}

// ActivityStats aggregates today's activity counts plus a recent feed.
type ActivityStats struct {
	TodayLogins        int             `json:"todayLogins"`
	TodayRegistrations int             `json:"todayRegistrations"`
	Recent             []ActivityEntry `json:"recent"`
}

// ActivityEntry is one item of the recent activity feed.
type ActivityEntry struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	ActorName   string    `json:"actorName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SystemStats reports process-level figures.
type SystemStats struct {
	UptimeSeconds  int64  `json:"uptimeSeconds"`
	Goroutines     int    `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heapAllocBytes"`
}

// Overview is the full payload served by the admin stats endpoint.
type Overview struct {
	Users       UserStats     `json:"users"`
	Activity    ActivityStats `json:"activity"`
	System      SystemStats   `json:"system"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
