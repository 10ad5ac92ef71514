// Package db persists chat sessions and their messages in Postgres.
package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"lumina-rag/internal/helper"
	"lumina-rag/internal/models"
)

type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s" json:"-"`

	ID        string    `bun:"id,pk" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Pinned    bool      `bun:"pinned,notnull,default:false" json:"pinned"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m" json:"-"`

	ID        int64                `bun:"id,pk,autoincrement" json:"-"`
	SessionID string               `bun:"session_id,notnull" json:"-"`
	Role      string               `bun:"role,notnull" json:"role"`
	Content   string               `bun:"content,notnull" json:"content"`
	Images    []models.ImageResult `bun:"images,type:jsonb" json:"images"`
	CreatedAt time.Time            `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Store wraps the bun connection with the session/message operations the
// chat surface needs.
type Store struct {
	db *bun.DB
}

func ConnectDB(url, key string) *sql.DB {
	dsn := url + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(key)))
}

func NewStore(sqldb *sql.DB, debug bool) *Store {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Session)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateTable().Model((*Message)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *Store) CreateSession(ctx context.Context, title string) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	session := &Session{ID: id, Title: title}
	if _, err := s.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns all sessions, pinned first, newest first within each
// group.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	sessions := make([]Session, 0)
	err := s.db.NewSelect().
		Model(&sessions).
		Order("pinned DESC", "created_at DESC").
		Scan(ctx)
	return sessions, err
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	session := new(Session)
	err := s.db.NewSelect().Model(session).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSession patches title and/or pinned; nil fields are left untouched.
func (s *Store) UpdateSession(ctx context.Context, id string, title *string, pinned *bool) error {
	q := s.db.NewUpdate().Model((*Session)(nil)).Where("id = ?", id)
	changed := false
	if title != nil {
		q = q.Set("title = ?", *title)
		changed = true
	}
	if pinned != nil {
		q = q.Set("pinned = ?", *pinned)
		changed = true
	}
	if !changed {
		return nil
	}
	_, err := q.Exec(ctx)
	return err
}

// DeleteSession removes a session and its messages.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().Model((*Message)(nil)).Where("session_id = ?", id).Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewDelete().Model((*Session)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// ClearAllSessions removes every session and message.
func (s *Store) ClearAllSessions(ctx context.Context) error {
	if _, err := s.db.NewDelete().Model((*Message)(nil)).Where("TRUE").Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewDelete().Model((*Session)(nil)).Where("TRUE").Exec(ctx)
	return err
}

func (s *Store) AddMessage(ctx context.Context, sessionID, role, content string, images []models.ImageResult) error {
	if images == nil {
		images = []models.ImageResult{}
	}
	msg := &Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Images:    images,
	}
	_, err := s.db.NewInsert().Model(msg).Exec(ctx)
	return err
}

// SessionMessages returns a session's messages in chronological order.
func (s *Store) SessionMessages(ctx context.Context, sessionID string) ([]Message, error) {
	messages := make([]Message, 0)
	err := s.db.NewSelect().
		Model(&messages).
		Where("session_id = ?", sessionID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	return messages, err
}
