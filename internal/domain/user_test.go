package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUserIsFree(t *testing.T) {
	u := NewUser(42)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, StatusFree, u.Status)
	assert.False(t, u.IsPremium())
}

func TestQuotaCountsDownAndResetsDaily(t *testing.T) {
	u := NewUser(1)
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 10, u.QuotaLeft(10))

	u.RecordDownload(now)
	u.RecordDownload(now.Add(time.Hour))
	assert.Equal(t, 2, u.DownloadsToday)
	assert.Equal(t, int64(2), u.TotalDownloads)

	// Next calendar day: the daily counter starts over, totals persist
	nextDay := now.Add(24 * time.Hour)
	u.RecordDownload(nextDay)
	assert.Equal(t, 1, u.DownloadsToday)
	assert.Equal(t, int64(3), u.TotalDownloads)
}

func TestQuotaLeftNeverNegative(t *testing.T) {
	u := NewUser(1)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		u.RecordDownload(now)
	}
	assert.Equal(t, 0, u.QuotaLeft(3))
}

func TestPremiumIgnoresDailyCounter(t *testing.T) {
	u := NewUser(1)
	u.Status = StatusPremium
	now := time.Now().UTC()
	for i := 0; i < 50; i++ {
		u.RecordDownload(now)
	}
	assert.Equal(t, 10, u.QuotaLeft(10))
}

func TestQuotaLeftStaleCounterTreatedAsFreshDay(t *testing.T) {
	u := NewUser(1)
	yesterday := time.Now().UTC().Add(-48 * time.Hour)
	u.RecordDownload(yesterday)
	u.DownloadsToday = 10

	assert.Equal(t, 10, u.QuotaLeft(10))
}
