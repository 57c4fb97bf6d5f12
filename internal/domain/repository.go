package domain

// UserStats aggregates store-wide counters for the admin surface
type UserStats struct {
	Total          int64 `json:"total"`
	Premium        int64 `json:"premium"`
	Free           int64 `json:"free"`
	TotalDownloads int64 `json:"total_downloads"`
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// GetOrCreate fetches a user, creating a free-tier record on first
	// contact. The second return value is true for newly created users.
	GetOrCreate(id int64) (*User, bool, error)

	// Update persists changes to an existing user
	Update(user *User) error

	// SetPremium toggles a user's premium status, creating the record if
	// needed
	SetPremium(id int64, premium bool) error

	// ListIDs returns all known user IDs (for broadcasts)
	ListIDs() ([]int64, error)

	// GetStats returns aggregate user statistics
	GetStats() (*UserStats, error)

	// Close releases the underlying store
	Close() error
}
