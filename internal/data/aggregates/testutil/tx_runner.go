package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/groupcart-backend/internal/data/aggregates"
	"github.com/yungbote/groupcart-backend/internal/platform/dbctx"
)

// errInjectedRollback forces Inner to roll back when FailCommit is set.
var errInjectedRollback = errors.New("injected rollback")

// InjectedTxRunner wraps an optional real runner and injects failures around
// it. With Inner set, a FailCommit really rolls the transaction back, so tests
// can assert that no write survived.
type InjectedTxRunner struct {
	mu sync.Mutex

	Inner aggregates.TxRunner

	FailBegin  error
	FailCommit error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failCommit := r.FailCommit
	inner := r.Inner
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}

	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		if failCommit != nil {
			return errInjectedRollback
		}
		return nil
	}

	var err error
	if inner != nil {
		err = inner.InTx(ctx, body)
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case errors.Is(err, errInjectedRollback):
		r.RollbackCalls++
		return failCommit
	case err != nil:
		r.RollbackCalls++
		return err
	default:
		r.CommitCalls++
		return nil
	}
}

func (r *InjectedTxRunner) Counts() (begin, commit, rollback int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.BeginCalls, r.CommitCalls, r.RollbackCalls
}
