package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jonztech/jz-cli/internal/logger"
	"github.com/jonztech/jz-cli/internal/session"
)

type chatSessionModel struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    string    `gorm:"type:text;not null;index"`
	Title     string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (chatSessionModel) TableName() string {
	return "chat_sessions"
}

type chatMessageModel struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId        uuid.UUID `gorm:"type:uuid;not null;index"`
	UserId           string    `gorm:"type:text;not null;index"`
	Role             string    `gorm:"type:text;not null"`
	Content          string    `gorm:"type:text;not null"`
	ImageUrl         *string   `gorm:"type:text"`
	DocumentUrl      *string   `gorm:"type:text"`
	DocumentFilename *string   `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"index"`
}

func (chatMessageModel) TableName() string {
	return "chat_messages"
}

// gormWriter routes gorm's logger into ours.
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Debug(logModule, fmt.Sprintf(format, args...), nil)
}

func gormLogger(log logger.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{log: log}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		Colorful:                  false,
	})
}

// PostgresStore keeps sessions in a shared Postgres database.
type PostgresStore struct {
	db    *gorm.DB
	owner string
	log   logger.Logger
}

// OpenPostgres connects to dsn and migrates the chat tables.
func OpenPostgres(dsn, owner string, log logger.Logger) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&chatSessionModel{}, &chatMessageModel{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &PostgresStore{db: db, owner: owner, log: log}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) owned(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Where("user_id = ?", s.owner)
}

func (s *PostgresStore) CreateSession(ctx context.Context, title string) (string, error) {
	if s.owner == "" {
		return "", nil
	}
	m := chatSessionModel{Id: uuid.New(), UserId: s.owner, Title: title}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return m.Id.String(), nil
}

func (s *PostgresStore) SaveMessage(ctx context.Context, sessionID string, msg session.Message) (string, error) {
	if s.owner == "" {
		return "", nil
	}
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return "", fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
	}
	m := chatMessageModel{
		Id:        uuid.New(),
		SessionId: sid,
		UserId:    s.owner,
		Role:      string(msg.Role),
		Content:   msg.Content,
		ImageUrl:  optional(msg.Image),
		CreatedAt: msg.Timestamp,
	}
	if msg.Document != nil {
		m.DocumentUrl = optional(msg.Document.URL)
		m.DocumentFilename = optional(msg.Document.Filename)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&chatSessionModel{}).
			Where("id = ? AND user_id = ?", sid, s.owner).
			Update("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to save message: %w", err)
	}
	return m.Id.String(), nil
}

func (s *PostgresStore) UpdateSessionTitle(ctx context.Context, sessionID, title string) error {
	if s.owner == "" {
		return nil
	}
	err := s.owned(ctx).Model(&chatSessionModel{}).Where("id = ?", sessionID).Update("title", title).Error
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	if s.owner == "" {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND user_id = ?", sessionID, s.owner).Delete(&chatMessageModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", sessionID, s.owner).Delete(&chatSessionModel{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearSessionMessages(ctx context.Context, sessionID string) error {
	if s.owner == "" {
		return nil
	}
	if err := s.owned(ctx).Where("session_id = ?", sessionID).Delete(&chatMessageModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadSessions(ctx context.Context) ([]session.Session, error) {
	if s.owner == "" {
		return nil, nil
	}
	var sessionModels []chatSessionModel
	if err := s.owned(ctx).Order("updated_at DESC").Find(&sessionModels).Error; err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	var messageModels []chatMessageModel
	if err := s.owned(ctx).Order("created_at ASC").Find(&messageModels).Error; err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}

	sessions := make([]session.Session, len(sessionModels))
	index := make(map[uuid.UUID]int, len(sessionModels))
	for i, m := range sessionModels {
		sessions[i] = session.Session{ID: m.Id.String(), Title: m.Title, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
		index[m.Id] = i
	}
	for _, m := range messageModels {
		i, ok := index[m.SessionId]
		if !ok {
			continue
		}
		msg := session.Message{
			ID:        m.Id.String(),
			Role:      session.Role(m.Role),
			Content:   m.Content,
			Timestamp: m.CreatedAt,
			Image:     deref(m.ImageUrl),
		}
		if m.DocumentUrl != nil {
			msg.Document = &session.DocumentRef{URL: *m.DocumentUrl, Filename: deref(m.DocumentFilename)}
		}
		sessions[i].Messages = append(sessions[i].Messages, msg)
	}
	return sessions, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
