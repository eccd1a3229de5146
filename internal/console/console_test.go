package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-portal-api/pkg/errors"
)

type fakeRows struct {
	pgx.Rows
	fields []pgconn.FieldDescription
	values [][]interface{}
	pos    int
	closed bool
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}
func (r *fakeRows) Values() ([]interface{}, error) { return r.values[r.pos-1], nil }
func (r *fakeRows) Err() error                     { return nil }
func (r *fakeRows) Close()                         { r.closed = true }

type fakeTx struct {
	pgx.Tx
	rows       *fakeRows
	queryErr   error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if t.queryErr != nil {
		return nil, t.queryErr
	}
	return t.rows, nil
}
func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

type fakeDB struct {
	tx   *fakeTx
	opts pgx.TxOptions
}

func (d *fakeDB) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	d.opts = opts
	return d.tx, nil
}

func studentRows(n int) *fakeRows {
	rows := &fakeRows{fields: []pgconn.FieldDescription{{Name: "student_id"}, {Name: "user_id"}}}
	for i := 0; i < n; i++ {
		rows.values = append(rows.values, []interface{}{int64(i + 1), [16]byte{1}})
	}
	return rows
}

func TestRunReadOnlyRollsBack(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{rows: studentRows(2)}}
	svc := NewService(db, Config{ReadOnly: true, MaxRows: 10}, nil)

	result, err := svc.Run(context.Background(), " SELECT student_id, user_id FROM students ")

	require.NoError(t, err)
	assert.Equal(t, pgx.ReadOnly, db.opts.AccessMode)
	assert.False(t, db.tx.committed)
	assert.True(t, db.tx.rolledBack)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int64(1), result.Rows[0]["student_id"])
	assert.Equal(t, "01000000-0000-0000-0000-000000000000", result.Rows[0]["user_id"])
	assert.True(t, db.tx.rows.closed)
}

func TestRunWritableCommits(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{rows: studentRows(0)}}
	svc := NewService(db, Config{}, nil)

	result, err := svc.Run(context.Background(), "UPDATE courses SET status = 'open'")

	require.NoError(t, err)
	assert.True(t, db.tx.committed)
	assert.Empty(t, result.Rows)
	assert.NotNil(t, result.Rows)
}

func TestRunCapsRows(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{rows: studentRows(5)}}
	svc := NewService(db, Config{ReadOnly: true, MaxRows: 3}, nil)

	result, err := svc.Run(context.Background(), "SELECT 1")

	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)
	assert.True(t, result.Truncated)
}

func TestRunEmptyQuery(t *testing.T) {
	svc := NewService(&fakeDB{}, Config{}, nil)

	_, err := svc.Run(context.Background(), "   ")

	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestRunSurfacesDatabaseMessage(t *testing.T) {
	db := &fakeDB{tx: &fakeTx{queryErr: &pgconn.PgError{Code: "42P01", Message: `relation "nope" does not exist`}}}
	svc := NewService(db, Config{ReadOnly: true}, nil)

	_, err := svc.Run(context.Background(), "SELECT * FROM nope")

	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, `relation "nope" does not exist`, appErr.Message)
}

type fakeRunner struct {
	result *Result
	err    error
}

func (f fakeRunner) Run(context.Context, string) (*Result, error) { return f.result, f.err }

func serveQuery(r runner, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/sql", NewHandler(r).Query)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerShapes(t *testing.T) {
	rec := serveQuery(fakeRunner{result: &Result{Rows: []map[string]interface{}{{"n": 1}}, Truncated: true}}, `{"query":"SELECT 1 AS n"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[{"n":1}]}`, rec.Body.String())
	assert.Equal(t, "true", rec.Header().Get("X-Console-Truncated"))

	rec = serveQuery(NewService(&fakeDB{}, Config{}, nil), `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No valid SQL query provided."}`, rec.Body.String())

	rec = serveQuery(fakeRunner{err: appErrors.Wrap(errors.New("boom"), appErrors.ErrInternal.Code, http.StatusInternalServerError, "syntax error at end of input")}, `{"query":"SELECT"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"syntax error at end of input"}`, rec.Body.String())
}
