package store

import (
	"context"
	"errors"
	"testing"

	"timecapsule/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct{ err error }

func (r stubRow) Scan(...any) error { return r.err }

type stubRunner struct{ rowErr error }

func (stubRunner) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("UPDATE 3"), nil
}

func (stubRunner) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("boom")
}

func (s stubRunner) QueryRow(context.Context, string, ...any) pgx.Row { return stubRow{err: s.rowErr} }

type recTracer struct{ evs []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.evs = append(r.evs, ev) }

func TestTracedReportsEveryStatement(t *testing.T) {
	t.Parallel()

	tr := &recTracer{}
	scanErr := errors.New("no rows")
	q := traced{db: stubRunner{rowErr: scanErr}, tracer: tr, slowUS: 0}
	ctx := context.Background()

	ct, err := q.Exec(ctx, "UPDATE capsules SET x = 1")
	if err != nil || ct.RowsAffected() != 3 {
		t.Fatalf("Exec = %v, %v", ct, err)
	}
	if _, err := q.Query(ctx, "SELECT 1"); err == nil {
		t.Fatalf("Query error swallowed")
	}

	r := q.QueryRow(ctx, "SELECT now()")
	if len(tr.evs) != 2 {
		t.Fatalf("QueryRow traced before Scan: %d events", len(tr.evs))
	}
	if err := r.Scan(); !errors.Is(err, scanErr) {
		t.Fatalf("Scan = %v", err)
	}

	if len(tr.evs) != 3 {
		t.Fatalf("events = %d", len(tr.evs))
	}
	if tr.evs[1].Err == nil || !errors.Is(tr.evs[2].Err, scanErr) {
		t.Fatalf("errors not traced: %+v", tr.evs)
	}
	for _, ev := range tr.evs {
		if !ev.Slow {
			t.Fatalf("zero threshold should flag every statement: %+v", ev)
		}
	}
}

func TestTracedSlowDisabled(t *testing.T) {
	t.Parallel()

	tr := &recTracer{}
	q := traced{db: stubRunner{}, tracer: tr, slowUS: -1000}
	_, _ = q.Exec(context.Background(), "SELECT 1")
	if len(tr.evs) != 1 || tr.evs[0].Slow {
		t.Fatalf("events = %+v", tr.evs)
	}

	quiet := traced{db: stubRunner{}}
	if _, err := quiet.Exec(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("untraced Exec: %v", err)
	}
}
