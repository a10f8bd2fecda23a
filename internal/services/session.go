package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/groupcart-backend/internal/calculator"
	"github.com/yungbote/groupcart-backend/internal/data/repos"
	domainagg "github.com/yungbote/groupcart-backend/internal/domain/aggregates"
	"github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/dbctx"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

// Identity is the caller as resolved by the external identity provider.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

type CreateSessionInput struct {
	SessionID      string                     `json:"sessionId,omitempty"`
	RestaurantID   string                     `json:"restaurantId"`
	Settings       grouporder.Settings        `json:"settings"`
	Charges        grouporder.Charges         `json:"charges"`
	DeliveryInfo   *grouporder.DeliveryInfo   `json:"deliveryInfo,omitempty"`
	SpendingLimits []grouporder.SpendingLimit `json:"spendingLimits,omitempty"`
}

type SpendingLimitsInput struct {
	Required bool                       `json:"spendingLimitRequired"`
	Limits   []grouporder.SpendingLimit `json:"spendingLimits"`
}

type SessionService interface {
	Create(ctx context.Context, creator Identity, in CreateSessionInput) (*grouporder.GroupOrder, error)
	Get(ctx context.Context, sessionID string) (*grouporder.GroupOrder, error)
	ListMine(ctx context.Context, userID string, limit int) ([]*grouporder.GroupOrder, error)
	JoinAsParticipant(ctx context.Context, sessionID string, who Identity, expectedVersion int) (*grouporder.GroupOrder, *grouporder.Participant, error)
	Leave(ctx context.Context, sessionID, userID string, expectedVersion int) (*grouporder.GroupOrder, error)
	SetSpendingLimits(ctx context.Context, sessionID, userID string, in SpendingLimitsInput, expectedVersion int) (*grouporder.GroupOrder, error)
	SetCharges(ctx context.Context, sessionID, userID string, charges grouporder.Charges, expectedVersion int) (*grouporder.GroupOrder, error)
	UpdatePaymentSplit(ctx context.Context, sessionID, userID string, cfg grouporder.SplitConfig, expectedVersion int) (*grouporder.GroupOrder, error)
}

type sessionService struct {
	db     *gorm.DB
	log    *logger.Logger
	orders domainagg.GroupOrderAggregate
	repo   repos.GroupOrderRepo
	now    func() time.Time
}

func NewSessionService(db *gorm.DB, log *logger.Logger, orders domainagg.GroupOrderAggregate, repo repos.GroupOrderRepo) SessionService {
	return &sessionService{
		db:     db,
		log:    log.With("service", "SessionService"),
		orders: orders,
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *sessionService) Create(ctx context.Context, creator Identity, in CreateSessionInput) (*grouporder.GroupOrder, error) {
	const op = "Session.Create"
	creator.UserID = strings.TrimSpace(creator.UserID)
	if creator.UserID == "" {
		return nil, fail(domainagg.CodeValidation, op, "missing user id")
	}
	if strings.TrimSpace(in.RestaurantID) == "" {
		return nil, fail(domainagg.CodeValidation, op, "restaurantId is required")
	}
	if err := validateCharges(op, in.Charges); err != nil {
		return nil, err
	}
	if err := validateLimits(op, in.SpendingLimits); err != nil {
		return nil, err
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := s.now()
	order := &grouporder.GroupOrder{
		SessionID:      sessionID,
		RestaurantID:   strings.TrimSpace(in.RestaurantID),
		CreatedBy:      creator.UserID,
		Status:         grouporder.StatusActive,
		Participants:   []grouporder.Participant{newParticipant(creator, now)},
		Items:          []grouporder.CartItem{},
		SpendingLimits: append([]grouporder.SpendingLimit{}, in.SpendingLimits...),
		Settings:       in.Settings,
		DeliveryInfo:   in.DeliveryInfo,
	}
	order.ApplyCharges(in.Charges)
	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	s.log.Info("group order created", "session_id", created.SessionID, "user_id", creator.UserID)
	return created, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*grouporder.GroupOrder, error) {
	order, _, err := s.orders.Read(ctx, sessionID)
	return order, err
}

func (s *sessionService) ListMine(ctx context.Context, userID string, limit int) ([]*grouporder.GroupOrder, error) {
	const op = "Session.ListMine"
	rows, err := s.repo.ListByCreator(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	out := make([]*grouporder.GroupOrder, 0, len(rows))
	for _, row := range rows {
		o, err := grouporder.FromRecord(row)
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// JoinAsParticipant adds the caller, re-activates a participant who left, or
// refreshes the profile of an active one.
func (s *sessionService) JoinAsParticipant(ctx context.Context, sessionID string, who Identity, expectedVersion int) (*grouporder.GroupOrder, *grouporder.Participant, error) {
	const op = "Session.JoinAsParticipant"
	who.UserID = strings.TrimSpace(who.UserID)
	if who.UserID == "" {
		return nil, nil, fail(domainagg.CodeValidation, op, "missing user id")
	}
	var joined grouporder.Participant
	order, err := s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			now := s.now()
			if p, ok := o.Participant(who.UserID); ok {
				if p.Status != grouporder.ParticipantActive {
					p.JoinedAt = now
				}
				p.Status = grouporder.ParticipantActive
				if strings.TrimSpace(who.Name) != "" {
					p.Name = strings.TrimSpace(who.Name)
				}
				if strings.TrimSpace(who.Email) != "" {
					p.Email = strings.TrimSpace(who.Email)
				}
				p.LastActivity = now
				joined = *p
			} else {
				joined = newParticipant(who, now)
				o.Participants = append(o.Participants, joined)
			}
			resplit(o)
			return nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return order, &joined, nil
}

func (s *sessionService) Leave(ctx context.Context, sessionID, userID string, expectedVersion int) (*grouporder.GroupOrder, error) {
	const op = "Session.Leave"
	return s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			if err := requireActiveParticipant(op, userID, o.IsActiveParticipant(userID)); err != nil {
				return err
			}
			if o.CreatedBy == userID {
				return fail(domainagg.CodeValidation, op, "the session creator cannot leave; cancel the order instead")
			}
			p, _ := o.Participant(userID)
			p.Status = grouporder.ParticipantLeft
			p.LastActivity = s.now()
			resplit(o)
			return nil
		},
	})
}

func (s *sessionService) SetSpendingLimits(ctx context.Context, sessionID, userID string, in SpendingLimitsInput, expectedVersion int) (*grouporder.GroupOrder, error) {
	const op = "Session.SetSpendingLimits"
	if err := validateLimits(op, in.Limits); err != nil {
		return nil, err
	}
	return s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			if o.CreatedBy != userID {
				return fail(domainagg.CodePermission, op, "only the session creator can set spending limits")
			}
			o.Settings.SpendingLimitRequired = in.Required
			o.SpendingLimits = append([]grouporder.SpendingLimit{}, in.Limits...)
			o.Touch(userID, s.now())
			return nil
		},
	})
}

func (s *sessionService) SetCharges(ctx context.Context, sessionID, userID string, charges grouporder.Charges, expectedVersion int) (*grouporder.GroupOrder, error) {
	const op = "Session.SetCharges"
	if err := validateCharges(op, charges); err != nil {
		return nil, err
	}
	return s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			if o.CreatedBy != userID {
				return fail(domainagg.CodePermission, op, "only the session creator can set charges")
			}
			o.ApplyCharges(charges)
			resplit(o)
			o.Touch(userID, s.now())
			return nil
		},
	})
}

// UpdatePaymentSplit computes and stores a split. Any active participant may
// change it while the cart is open.
func (s *sessionService) UpdatePaymentSplit(ctx context.Context, sessionID, userID string, cfg grouporder.SplitConfig, expectedVersion int) (*grouporder.GroupOrder, error) {
	const op = "Session.UpdatePaymentSplit"
	if !cfg.Method.Valid() {
		return nil, fail(domainagg.CodeValidation, op, "unknown split method %q", cfg.Method)
	}
	return s.orders.ApplyMutation(ctx, domainagg.MutationInput{
		Op:              op,
		SessionID:       sessionID,
		ExpectedVersion: expectedVersion,
		AllowedStatuses: cartStatuses,
		Apply: func(o *grouporder.GroupOrder) error {
			if err := requireActiveParticipant(op, userID, o.IsActiveParticipant(userID)); err != nil {
				return err
			}
			assignments, err := calculator.Calculate(o, cfg)
			if err != nil {
				return err
			}
			o.SetAssignments(cfg, assignments)
			o.Touch(userID, s.now())
			return nil
		},
	})
}

func newParticipant(who Identity, now time.Time) grouporder.Participant {
	name := strings.TrimSpace(who.Name)
	if name == "" {
		name = who.UserID
	}
	return grouporder.Participant{
		UserID:       who.UserID,
		Name:         name,
		Email:        strings.TrimSpace(who.Email),
		JoinedAt:     now,
		Status:       grouporder.ParticipantActive,
		LastActivity: now,
	}
}

func validateCharges(op string, c grouporder.Charges) error {
	if c.Tax < 0 || c.DeliveryFee < 0 || c.ServiceFee < 0 || c.Tip < 0 {
		return fail(domainagg.CodeValidation, op, "charges must be non-negative")
	}
	return nil
}

func validateLimits(op string, limits []grouporder.SpendingLimit) error {
	seen := make(map[string]struct{}, len(limits))
	for _, l := range limits {
		if strings.TrimSpace(l.UserID) == "" {
			return fail(domainagg.CodeValidation, op, "spending limit requires userId")
		}
		if l.Limit < 0 {
			return fail(domainagg.CodeValidation, op, "spending limit for %s must be non-negative", l.UserID)
		}
		if _, dup := seen[l.UserID]; dup {
			return fail(domainagg.CodeValidation, op, "duplicate spending limit for %s", l.UserID)
		}
		seen[l.UserID] = struct{}{}
	}
	return nil
}
