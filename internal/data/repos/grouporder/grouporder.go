package grouporder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/dbctx"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

type GroupOrderRepo interface {
	Create(dbc dbctx.Context, row *types.Record) error
	GetBySessionID(dbc dbctx.Context, sessionID string) (*types.Record, error)
	ListByCreator(dbc dbctx.Context, userID string, limit int) ([]*types.Record, error)
}

type groupOrderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupOrderRepo(db *gorm.DB, log *logger.Logger) GroupOrderRepo {
	return &groupOrderRepo{
		db:  db,
		log: log.With("repo", "GroupOrderRepo"),
	}
}

func (r *groupOrderRepo) Create(dbc dbctx.Context, row *types.Record) error {
	if row == nil {
		return fmt.Errorf("missing row")
	}
	if strings.TrimSpace(row.SessionID) == "" {
		return fmt.Errorf("missing session_id")
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}
	return dbc.DB(r.db).Create(row).Error
}

// GetBySessionID returns nil, nil when the session does not exist.
func (r *groupOrderRepo) GetBySessionID(dbc dbctx.Context, sessionID string) (*types.Record, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("missing session_id")
	}
	var row types.Record
	err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *groupOrderRepo) ListByCreator(dbc dbctx.Context, userID string, limit int) ([]*types.Record, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []*types.Record
	if err := dbc.DB(r.db).
		Model(&types.Record{}).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
