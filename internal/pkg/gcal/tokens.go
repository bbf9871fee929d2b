package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
	"github.com/biblestudybuddy/studybuddy/app/repository"
	"github.com/biblestudybuddy/studybuddy/internal/pkg/cache"
)

const (
	refreshSkew     = 5 * time.Minute
	refreshLockTTL  = 30 * time.Second
	refreshLockPoll = 100 * time.Millisecond
)

var ErrNotConnected = errors.New("google calendar not connected")

// TokenManager hands out usable access tokens and keeps at most one refresh
// in flight per user: singleflight inside the process, a Redis lock across
// processes.
type TokenManager struct {
	profiles  repository.ProfileRepository
	refresher Refresher
	rdb       *redis.Client
	group     singleflight.Group
	now       func() time.Time
}

// NewTokenManager accepts a nil rdb, in which case only in-process
// deduplication applies.
func NewTokenManager(profiles repository.ProfileRepository, refresher Refresher, rdb *redis.Client) *TokenManager {
	return &TokenManager{profiles: profiles, refresher: refresher, rdb: rdb, now: time.Now}
}

func (m *TokenManager) fresh(p *models.Profile) bool {
	return p.GoogleAccessToken != "" &&
		p.GoogleTokenExpiresAt != nil &&
		p.GoogleTokenExpiresAt.After(m.now().Add(refreshSkew))
}

func (m *TokenManager) load(userID uint) (*models.Profile, error) {
	p, err := m.profiles.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotConnected
		}
		return nil, err
	}
	if !p.HasGoogleCalendar() {
		return nil, ErrNotConnected
	}
	return p, nil
}

// AccessToken returns a token valid for at least the refresh skew.
func (m *TokenManager) AccessToken(ctx context.Context, userID uint) (string, error) {
	p, err := m.load(userID)
	if err != nil {
		return "", err
	}
	if m.fresh(p) {
		return p.GoogleAccessToken, nil
	}

	v, err, _ := m.group.Do(fmt.Sprintf("%d", userID), func() (interface{}, error) {
		return m.refresh(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *TokenManager) refresh(ctx context.Context, userID uint) (string, error) {
	if m.rdb == nil {
		return m.refreshLocked(ctx, userID)
	}

	key := fmt.Sprintf("gcal:refresh:%d", userID)
	for attempt := 0; attempt < 2; attempt++ {
		lock, err := cache.AcquireLock(ctx, m.rdb, key, uuid.NewString(), refreshLockTTL)
		if err == nil {
			defer func() {
				if rerr := lock.Release(context.Background()); rerr != nil {
					log.Warnf("[GoogleCalendar] releasing refresh lock for user %d: %v", userID, rerr)
				}
			}()
			return m.refreshLocked(ctx, userID)
		}
		if !errors.Is(err, cache.ErrLockHeld) {
			return "", err
		}

		// Another process is refreshing; use its result once the lock is gone.
		if err := cache.WaitForUnlock(ctx, m.rdb, key, refreshLockPoll); err != nil {
			return "", err
		}
		p, err := m.load(userID)
		if err != nil {
			return "", err
		}
		if m.fresh(p) {
			return p.GoogleAccessToken, nil
		}
	}
	return "", fmt.Errorf("token refresh for user %d did not complete", userID)
}

func (m *TokenManager) refreshLocked(ctx context.Context, userID uint) (string, error) {
	// re-read under the lock; the previous holder may have refreshed already
	p, err := m.load(userID)
	if err != nil {
		return "", err
	}
	if m.fresh(p) {
		return p.GoogleAccessToken, nil
	}

	tok, err := m.refresher.Refresh(ctx, p.GoogleRefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh google token: %w", err)
	}
	if tok.AccessToken == "" || tok.Expiry.IsZero() {
		return "", errors.New("refresh google token: empty token")
	}

	if err := m.profiles.SaveGoogleTokens(userID, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		return "", fmt.Errorf("save google token: %w", err)
	}
	log.Infof("[GoogleCalendar] refreshed access token for user %d", userID)
	return tok.AccessToken, nil
}
