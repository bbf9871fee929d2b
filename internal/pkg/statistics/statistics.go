package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/biblestudybuddy/studybuddy/app/models"
)

const (
	CacheKey        = "statistics:summary"
	CacheExpiration = 5 * time.Minute
)

// Data is the site summary shown to admins.
type Data struct {
	TotalUsers     int64     `json:"total_users"`
	ProUsers       int64     `json:"pro_users"`
	TotalGroups    int64     `json:"total_groups"`
	TotalPlanners  int64     `json:"total_planners"`
	EventsToday    int64     `json:"events_today"`
	MessagesToday  int64     `json:"messages_today"`
	ContactMessages int64    `json:"contact_messages"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type Service struct {
	db  *gorm.DB
	rdb *redis.Client
	now func() time.Time
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{db: db, rdb: rdb, now: time.Now}
}

// Get returns the cached summary, computing and caching it on a miss.
func (s *Service) Get(ctx context.Context) (Data, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, CacheKey).Bytes()
		if err == nil {
			var d Data
			if err := json.Unmarshal(raw, &d); err == nil {
				return d, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warnf("[Statistics] cache read: %v", err)
		}
	}
	return s.Refresh(ctx)
}

// Refresh recomputes the summary and stores it in the cache.
func (s *Service) Refresh(ctx context.Context) (Data, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	d := Data{GeneratedAt: now}
	db := s.db.WithContext(ctx)
	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&d.TotalUsers, db.Model(&models.User{})},
		{&d.ProUsers, db.Model(&models.Profile{}).Where("account_type <> ?", models.AccountTypeFree)},
		{&d.TotalGroups, db.Model(&models.Group{})},
		{&d.TotalPlanners, db.Model(&models.Planner{})},
		{&d.EventsToday, db.Model(&models.Event{}).Where("date >= ? AND date < ?", dayStart, dayEnd)},
		{&d.MessagesToday, db.Model(&models.UserMessage{}).Where("created_at >= ? AND created_at < ?", dayStart, dayEnd)},
		{&d.ContactMessages, db.Model(&models.ContactMessage{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return Data{}, err
		}
	}

	if s.rdb != nil {
		raw, err := json.Marshal(d)
		if err == nil {
			err = s.rdb.Set(ctx, CacheKey, raw, CacheExpiration).Err()
		}
		if err != nil {
			log.Warnf("[Statistics] cache write: %v", err)
		}
	}
	return d, nil
}
