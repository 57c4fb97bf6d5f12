package domain

import "time"

// UserStatus represents a user's subscription status
type UserStatus string

const (
	StatusFree    UserStatus = "free"
	StatusPremium UserStatus = "premium"
)

// User represents a bot user and their download quota
type User struct {
	ID             int64      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Status         UserStatus `json:"status" gorm:"not null;default:free;index"`
	DownloadsToday int        `json:"downloads_today" gorm:"default:0"`
	TotalDownloads int64      `json:"total_downloads" gorm:"default:0"`
	LastDownloadAt *time.Time `json:"last_download_at,omitempty"`
	JoinedAt       time.Time  `json:"joined_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewUser creates a new free-tier user
func NewUser(id int64) *User {
	now := time.Now().UTC()
	return &User{
		ID:       id,
		Status:   StatusFree,
		JoinedAt: now,
	}
}

// IsPremium reports whether the user has unlimited downloads
func (u *User) IsPremium() bool {
	return u.Status == StatusPremium
}

// QuotaLeft returns the remaining free downloads for today. Premium users
// always have quota.
func (u *User) QuotaLeft(dailyQuota int) int {
	if u.IsPremium() {
		return dailyQuota
	}
	left := dailyQuota - u.downloadsToday(time.Now().UTC())
	if left < 0 {
		return 0
	}
	return left
}

// RecordDownload counts one download against today's quota. The daily
// counter resets when the calendar date changes.
func (u *User) RecordDownload(now time.Time) {
	if u.downloadsToday(now) == 0 {
		u.DownloadsToday = 0
	}
	u.DownloadsToday++
	u.TotalDownloads++
	t := now
	u.LastDownloadAt = &t
}

// downloadsToday returns the counter, treating a stale LastDownloadAt as a
// fresh day.
func (u *User) downloadsToday(now time.Time) int {
	if u.LastDownloadAt == nil {
		return 0
	}
	y1, m1, d1 := u.LastDownloadAt.UTC().Date()
	y2, m2, d2 := now.UTC().Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		return 0
	}
	return u.DownloadsToday
}
