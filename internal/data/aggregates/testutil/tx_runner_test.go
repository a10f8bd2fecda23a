package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/groupcart-backend/internal/platform/dbctx"
)

func TestInjectedTxRunner(t *testing.T) {
	bodyErr := errors.New("boom")
	commitErr := errors.New("commit failed")
	beginErr := errors.New("begin failed")

	cases := []struct {
		name      string
		runner    *InjectedTxRunner
		body      error
		wantErr   error
		wantCalls bool
		commit    int
		rollback  int
	}{
		{name: "commits on success", runner: &InjectedTxRunner{}, wantCalls: true, commit: 1},
		{name: "rolls back on body error", runner: &InjectedTxRunner{}, body: bodyErr, wantErr: bodyErr, wantCalls: true, rollback: 1},
		{name: "fail commit rolls back", runner: &InjectedTxRunner{FailCommit: commitErr}, wantErr: commitErr, wantCalls: true, rollback: 1},
		{name: "fail begin skips body", runner: &InjectedTxRunner{FailBegin: beginErr}, wantErr: beginErr},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			err := tc.runner.InTx(context.Background(), func(_ dbctx.Context) error {
				called = true
				return tc.body
			})
			if !errors.Is(err, tc.wantErr) || (tc.wantErr == nil && err != nil) {
				t.Fatalf("err: want=%v got=%v", tc.wantErr, err)
			}
			if called != tc.wantCalls {
				t.Fatalf("body called: want=%v got=%v", tc.wantCalls, called)
			}
			begin, commit, rollback := tc.runner.Counts()
			if begin != 1 || commit != tc.commit || rollback != tc.rollback {
				t.Fatalf("counters begin=%d commit=%d rollback=%d", begin, commit, rollback)
			}
		})
	}
}
