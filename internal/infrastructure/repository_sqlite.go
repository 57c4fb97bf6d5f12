package infrastructure

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/mediagrab/internal/domain"
)

// SQLiteUserRepository implements UserRepository using SQLite
type SQLiteUserRepository struct {
	db *gorm.DB
}

var _ domain.UserRepository = (*SQLiteUserRepository)(nil)

// NewSQLiteUserRepository creates a new SQLite repository
func NewSQLiteUserRepository(dbPath string) (*SQLiteUserRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteUserRepository{db: db}, nil
}

// GetOrCreate loads the user record, creating it on first contact. The
// second return reports whether the user was just created.
func (r *SQLiteUserRepository) GetOrCreate(id int64) (*domain.User, bool, error) {
	var user domain.User
	err := r.db.First(&user, "id = ?", id).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	fresh := domain.NewUser(id)
	if err := r.db.Create(fresh).Error; err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

// Update persists an existing user
func (r *SQLiteUserRepository) Update(user *domain.User) error {
	return r.db.Save(user).Error
}

// SetPremium flips a user's plan. The user is created first if unknown.
func (r *SQLiteUserRepository) SetPremium(id int64, premium bool) error {
	user, _, err := r.GetOrCreate(id)
	if err != nil {
		return err
	}
	user.Status = domain.StatusFree
	if premium {
		user.Status = domain.StatusPremium
	}
	return r.db.Save(user).Error
}

// ListIDs returns every known user ID, used for broadcasts
func (r *SQLiteUserRepository) ListIDs() ([]int64, error) {
	var ids []int64
	err := r.db.Model(&domain.User{}).Order("joined_at ASC").Pluck("id", &ids).Error
	return ids, err
}

// GetStats returns user statistics
func (r *SQLiteUserRepository) GetStats() (*domain.UserStats, error) {
	stats := &domain.UserStats{}

	if err := r.db.Model(&domain.User{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&domain.User{}).
		Where("status = ?", domain.StatusPremium).
		Count(&stats.Premium).Error; err != nil {
		return nil, err
	}
	stats.Free = stats.Total - stats.Premium

	var totalDownloads struct{ Sum int64 }
	if err := r.db.Model(&domain.User{}).
		Select("COALESCE(SUM(total_downloads), 0) as sum").
		Scan(&totalDownloads).Error; err != nil {
		return nil, err
	}
	stats.TotalDownloads = totalDownloads.Sum

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteUserRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
