package store

import (
	"context"
	stderrs "errors"
	"testing"

	perr "warden/internal/platform/errors"
)

// fake querier plumbing

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		if p, ok := dest[i].(*int64); ok {
			*p = r.vals[i].(int64)
		}
		if p, ok := dest[i].(*string); ok {
			*p = r.vals[i].(string)
		}
	}
	return nil
}

type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Next() bool { return r.pos < len(r.data) }
func (r *fakeRows) Scan(dest ...any) error {
	row := fakeRow{vals: r.data[r.pos]}
	r.pos++
	return row.Scan(dest...)
}
func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Close() {}

func (r *fakeRows) Columns() []string { return nil }

type fakeQuerier struct {
	row  Row
	rows Rows
	err  error
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (CommandTag, error) {
	return nil, f.err
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (Rows, error) {
	return f.rows, f.err
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) Row { return f.row }

func TestScalar(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{vals: []any{int64(7)}}}
	got, err := Scalar[int64](context.Background(), q, "select count(*)")
	if err != nil || got != 7 {
		t.Fatalf("Scalar = %d/%v, want 7", got, err)
	}

	boom := stderrs.New("scan failed")
	q.row = fakeRow{err: boom}
	if _, err := Scalar[int64](context.Background(), q, "select 1"); !stderrs.Is(err, boom) {
		t.Fatalf("err = %v, want scan error", err)
	}
}

func scanPair(r Row) (string, error) {
	var s string
	err := r.Scan(&s)
	return s, err
}

func TestOne(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{{"only"}}}}
	got, err := One(context.Background(), q, scanPair, "select name")
	if err != nil || got != "only" {
		t.Fatalf("One = %q/%v", got, err)
	}

	q.rows = &fakeRows{}
	if _, err := One(context.Background(), q, scanPair, "select name"); !stderrs.Is(err, perr.ErrNotFound) {
		t.Fatalf("empty result err = %v, want ErrNotFound", err)
	}

	q.rows = &fakeRows{data: [][]any{{"a"}, {"b"}}}
	if _, err := One(context.Background(), q, scanPair, "select name"); err == nil {
		t.Fatal("expected error for more than one row")
	}
}

func TestMany(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{data: [][]any{{"a"}, {"b"}, {"c"}}}}
	got, err := Many(context.Background(), q, scanPair, "select name")
	if err != nil {
		t.Fatalf("Many: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Many = %v", got)
	}

	q.rows = &fakeRows{}
	got, err = Many(context.Background(), q, scanPair, "select name")
	if err != nil || got != nil {
		t.Fatalf("empty Many = %v/%v, want nil slice", got, err)
	}
}
