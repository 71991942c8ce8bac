// internal/admin/implementation.go
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const credentialID = 1

// service implements the Service interface.
type service struct {
	db          *gorm.DB
	rateLimiter *rate.Limiter
}

// NewService creates a new admin service instance. Failed verifications draw from a
// limiter of 5 attempts per minute.
func NewService(db *gorm.DB) Service {
	return &service{
		db:          db,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/5), 5),
	}
}

// Migrate creates the credential table and stores initialPIN when no PIN exists yet.
func Migrate(ctx context.Context, db *gorm.DB, initialPIN string) error {
	if err := db.WithContext(ctx).AutoMigrate(&Credential{}); err != nil {
		return fmt.Errorf("migrate admin_credentials: %w", err)
	}
	if initialPIN == "" {
		return nil
	}

	svc := &service{db: db}
	enabled, err := svc.Enabled(ctx)
	if err != nil || enabled {
		return err
	}
	return svc.SetPIN(ctx, initialPIN)
}

func (s *service) Enabled(ctx context.Context) (bool, error) {
	_, err := s.load(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Verify(ctx context.Context, pin string) error {
	cred, err := s.load(ctx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if s.rateLimiter != nil && s.rateLimiter.Tokens() < 1 {
		return ErrRateLimited
	}

	ok, err := verifyPIN(pin, cred.Salt, cred.PINHash)
	if err != nil {
		return fmt.Errorf("failed to verify pin: %w", err)
	}
	if !ok {
		if s.rateLimiter != nil {
			s.rateLimiter.Allow()
		}
		return ErrInvalidPIN
	}
	return nil
}

func (s *service) SetPIN(ctx context.Context, pin string) error {
	if len(pin) < minPINLength {
		return ErrPINTooShort
	}
	hash, salt, err := hashPIN(pin)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	cred := Credential{ID: credentialID, PINHash: hash, Salt: salt, UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pin_hash", "salt", "updated_at"}),
	}).Create(&cred).Error
	if err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}
	return nil
}

func (s *service) ClearPIN(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("id = ?", credentialID).Delete(&Credential{}).Error; err != nil {
		return fmt.Errorf("failed to clear pin: %w", err)
	}
	return nil
}

func (s *service) load(ctx context.Context) (*Credential, error) {
	var cred Credential
	if err := s.db.WithContext(ctx).Where("id = ?", credentialID).Take(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}
