package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/metrics"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/utils"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// touchInterval limits how often a session's expiry is pushed forward.
const touchInterval = time.Hour

type SessionService struct {
	db            *gorm.DB
	ttl           time.Duration
	cronScheduler *cron.Cron
	now           func() time.Time
}

func NewSessionService(db *gorm.DB, cfg config.SessionConfig) *SessionService {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionService{db: db, ttl: ttl, now: time.Now}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session and returns the raw id for the cookie. Only
// its hash is persisted.
func (s *SessionService) Create(userID uint, ip, userAgent string) (string, time.Time, error) {
	sid := uuid.NewString()
	expiresAt := s.now().Add(s.ttl)
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}
	session := models.Session{
		SIDHash:   utils.HashToken(sid),
		UserID:    userID,
		ExpiresAt: expiresAt,
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return "", time.Time{}, err
	}
	return sid, expiresAt, nil
}

// Lookup resolves a session id to its user and slides the expiry forward.
func (s *SessionService) Lookup(sid string) (*models.User, error) {
	if sid == "" {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	err := s.db.Where(&models.Session{SIDHash: utils.HashToken(sid)}).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !session.ExpiresAt.After(now) {
		if err := s.db.Delete(&session).Error; err != nil {
			logger.Warn().Err(err).Uint("session_id", session.ID).Msg("[Session] Failed to delete expired session")
		}
		return nil, ErrSessionNotFound
	}

	var user models.User
	if err := s.db.First(&user, session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if now.Sub(session.UpdatedAt) > touchInterval {
		if err := s.db.Model(&session).Updates(map[string]interface{}{"expires_at": now.Add(s.ttl), "updated_at": now}).Error; err != nil {
			logger.Warn().Err(err).Uint("session_id", session.ID).Msg("[Session] Failed to extend session")
		}
	}
	return &user, nil
}

func (s *SessionService) Delete(sid string) error {
	return s.db.Where("sid_hash = ?", utils.HashToken(sid)).Delete(&models.Session{}).Error
}

// PurgeExpired removes expired sessions and refreshes the active-session gauge.
func (s *SessionService) PurgeExpired() (int64, error) {
	result := s.db.Where("expires_at <= ?", s.now()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, result.Error
	}

	var active int64
	if err := s.db.Model(&models.Session{}).Count(&active).Error; err == nil {
		metrics.SetActiveSessions(active)
	}
	return result.RowsAffected, nil
}

func (s *SessionService) StartJanitor() {
	s.cronScheduler = cron.New()
	_, err := s.cronScheduler.AddFunc("@hourly", func() {
		purged, err := s.PurgeExpired()
		if err != nil {
			logger.Warnf("[Session] Failed to purge expired sessions: %v", err)
			return
		}
		if purged > 0 {
			logger.Infof("[Session] Purged %d expired sessions", purged)
		}
	})
	if err != nil {
		logger.Errorf("[Session] Failed to add cron job: %v", err)
		return
	}
	s.cronScheduler.Start()
	logger.Info().Msg("[Session] Janitor started")
}

func (s *SessionService) StopJanitor() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}
