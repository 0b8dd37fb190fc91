package store

import (
	"context"
	"errors"
	"reflect"
)

// memRows is an in-memory Rows over a fixed table
type memRows struct {
	cols   []string
	data   [][]any
	idx    int
	err    error
	closed bool
}

func newMemRows(cols []string, data ...[]any) *memRows {
	return &memRows{cols: cols, data: data, idx: -1}
}

func (r *memRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *memRows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("scan out of range")
	}
	row := r.data[r.idx]
	if len(row) != len(dest) {
		return errors.New("dest len mismatch")
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer {
			return errors.New("dest not pointer")
		}
		dv.Elem().Set(reflect.ValueOf(row[i]).Convert(dv.Elem().Type()))
	}
	return nil
}

func (r *memRows) Err() error        { return r.err }
func (r *memRows) Close()            { r.closed = true }
func (r *memRows) Columns() []string { return r.cols }

type memTag int64

func (t memTag) String() string      { return "UPDATE" }
func (t memTag) RowsAffected() int64 { return int64(t) }

type memRow struct {
	rows *memRows
	err  error
}

func (r memRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.rows.Next() {
		return perrNoRows
	}
	return r.rows.Scan(dest...)
}

var perrNoRows = errors.New("no rows in result set")

// fakeQ records the last statement and serves canned results
type fakeQ struct {
	lastSQL  string
	lastArgs []any
	tag      CommandTag
	execErr  error
	rows     *memRows
	queryErr error
}

func (f *fakeQ) Exec(_ context.Context, sql string, args ...any) (CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.tag, nil
}

func (f *fakeQ) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeQ) QueryRow(_ context.Context, sql string, args ...any) Row {
	f.lastSQL, f.lastArgs = sql, args
	return memRow{rows: f.rows, err: f.queryErr}
}
