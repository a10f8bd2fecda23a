package grouporder

import (
	"context"
	"testing"

	"github.com/yungbote/groupcart-backend/internal/data/repos/testutil"
	types "github.com/yungbote/groupcart-backend/internal/domain/grouporder"
	"github.com/yungbote/groupcart-backend/internal/platform/dbctx"
)

func TestGroupOrderRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewGroupOrderRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	order := testutil.NewOrder("creator", "guest")
	row, err := types.ToRecord(order)
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if err := repo.Create(dbc, row); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetBySessionID(dbc, order.SessionID)
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if got == nil || got.SessionID != order.SessionID {
		t.Fatalf("GetBySessionID: unexpected result: %+v", got)
	}
	decoded, err := types.FromRecord(got)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if len(decoded.Participants) != 2 {
		t.Fatalf("participants: want=2 got=%d", len(decoded.Participants))
	}

	missing, err := repo.GetBySessionID(dbc, "does-not-exist")
	if err != nil {
		t.Fatalf("GetBySessionID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetBySessionID missing: expected nil, got %+v", missing)
	}

	list, err := repo.ListByCreator(dbc, "creator", 10)
	if err != nil {
		t.Fatalf("ListByCreator: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListByCreator: want=1 got=%d", len(list))
	}
}
