package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"

	"github.com/iamwavecut/tool"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/resources"
)

type sqliteClient struct {
	db    *sqlx.DB
	mutex sync.RWMutex
}

func NewSQLiteClient(ctx context.Context, dir, dbPath string) (*sqliteClient, error) {
	dbx, err := sqlx.Open("sqlite", filepath.Join(dir, dbPath))
	if err != nil {
		return nil, errors.WithMessage(err, "cant open db")
	}
	dbx.SetMaxOpenConns(42)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.ExecContext(ctx, dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		return nil, errors.WithMessage(err, "migrate up failed")
	}
	if n > 0 {
		log.Infof("applied %d migrations!", n)
	}

	return &sqliteClient{db: dbx}, nil
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

func (c *sqliteClient) GetSettings(ctx context.Context, chatID int64) (*db.Settings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	res := &db.Settings{}
	err := c.db.GetContext(ctx, res, "SELECT * FROM chats WHERE id=?", chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

func (c *sqliteClient) SetSettings(ctx context.Context, settings *db.Settings) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chats (
			id, language, warn_threshold, mute_duration_hours,
			edit_deletion_enabled, nsfw_filter_enabled, self_destruct_seconds,
			service_msg_enabled, service_msg_delete_after,
			event_msg_enabled, event_msg_delete_after,
			welcome_text, welcome_image_file_id, service_info_text
		) VALUES (
			:id, :language, :warn_threshold, :mute_duration_hours,
			:edit_deletion_enabled, :nsfw_filter_enabled, :self_destruct_seconds,
			:service_msg_enabled, :service_msg_delete_after,
			:event_msg_enabled, :event_msg_delete_after,
			:welcome_text, :welcome_image_file_id, :service_info_text
		)
		ON CONFLICT(id) DO UPDATE SET
			language=excluded.language,
			warn_threshold=excluded.warn_threshold,
			mute_duration_hours=excluded.mute_duration_hours,
			edit_deletion_enabled=excluded.edit_deletion_enabled,
			nsfw_filter_enabled=excluded.nsfw_filter_enabled,
			self_destruct_seconds=excluded.self_destruct_seconds,
			service_msg_enabled=excluded.service_msg_enabled,
			service_msg_delete_after=excluded.service_msg_delete_after,
			event_msg_enabled=excluded.event_msg_enabled,
			event_msg_delete_after=excluded.event_msg_delete_after,
			welcome_text=excluded.welcome_text,
			welcome_image_file_id=excluded.welcome_image_file_id,
			service_info_text=excluded.service_info_text;
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, settings))
}

func (c *sqliteClient) GetWarningCount(ctx context.Context, chatID, userID int64) (uint, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count uint
	err := c.db.GetContext(ctx, &count, "SELECT count FROM warnings WHERE chat_id=? AND user_id=?", chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func (c *sqliteClient) SetWarningCount(ctx context.Context, chatID, userID int64, count uint) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO warnings (chat_id, user_id, count) VALUES (?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET count=excluded.count;
	`
	_, err := c.db.ExecContext(ctx, query, chatID, userID, count)
	return err
}

func (c *sqliteClient) GetRestrictions(ctx context.Context, chatID, userID int64) (*db.Restrictions, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	res := &db.Restrictions{}
	err := c.db.GetContext(ctx, res, "SELECT * FROM restrictions WHERE chat_id=? AND user_id=?", chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}

func (c *sqliteClient) SetRestrictions(ctx context.Context, restrictions *db.Restrictions) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO restrictions (
			chat_id, user_id, flood, spam, media, checks, night, sticker, gif, link
		) VALUES (
			:chat_id, :user_id, :flood, :spam, :media, :checks, :night, :sticker, :gif, :link
		)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			flood=excluded.flood,
			spam=excluded.spam,
			media=excluded.media,
			checks=excluded.checks,
			night=excluded.night,
			sticker=excluded.sticker,
			gif=excluded.gif,
			link=excluded.link;
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, restrictions))
}

func (c *sqliteClient) DeleteRestrictions(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, "DELETE FROM restrictions WHERE chat_id=? AND user_id=?", chatID, userID)
	return err
}

func (c *sqliteClient) UpsertFilter(ctx context.Context, entry *db.FilterEntry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO filters (chat_id, keyword, media_kind, file_id, caption)
		VALUES (:chat_id, :keyword, :media_kind, :file_id, :caption)
		ON CONFLICT(chat_id, keyword) DO UPDATE SET
			media_kind=excluded.media_kind,
			file_id=excluded.file_id,
			caption=excluded.caption;
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, entry))
}

func (c *sqliteClient) DeleteFilter(ctx context.Context, chatID int64, keyword string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, "DELETE FROM filters WHERE chat_id=? AND keyword=?", chatID, keyword)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (c *sqliteClient) ListFilters(ctx context.Context, chatID int64) ([]*db.FilterEntry, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var entries []*db.FilterEntry
	if err := c.db.SelectContext(ctx, &entries, "SELECT * FROM filters WHERE chat_id=?", chatID); err != nil {
		return nil, err
	}
	return entries, nil
}
