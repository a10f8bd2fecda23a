package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"gorm.io/gorm"
)

// NewOrder builds an active session created by creator with the given active participants.
func NewOrder(creator string, others ...string) *types.GroupOrder {
	now := time.Now().UTC()
	o := &types.GroupOrder{
		SessionID:    uuid.NewString(),
		RestaurantID: "restaurant-1",
		CreatedBy:    creator,
		Status:       types.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, uid := range append([]string{creator}, others...) {
		o.Participants = append(o.Participants, types.Participant{
			UserID:       uid,
			Name:         uid,
			JoinedAt:     now,
			Status:       types.ParticipantActive,
			LastActivity: now,
		})
	}
	return o
}

// SeedOrder persists o directly, bypassing the aggregate.
func SeedOrder(tb testing.TB, ctx context.Context, db *gorm.DB, o *types.GroupOrder) *types.GroupOrder {
	tb.Helper()
	row, err := types.ToRecord(o)
	if err != nil {
		tb.Fatalf("encode group order: %v", err)
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed group order: %v", err)
	}
	return o
}
