package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveJSON(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newComparer(goSrv, legacySrv *httptest.Server) comparer {
	return comparer{
		client:    http.DefaultClient,
		goAPI:     endpoint{name: "go", base: goSrv.URL},
		legacyAPI: endpoint{name: "legacy", base: legacySrv.URL},
	}
}

func TestCompareSortsRosterRows(t *testing.T) {
	goSrv := serveJSON(http.StatusOK, `{"enrollments":[{"enrollment_id":2,"grade":1.5},{"enrollment_id":10,"grade":null}]}`)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusOK, `{"enrollments":[{"enrollment_id":10,"grade":null},{"enrollment_id":2,"grade":1.50}]}`)
	defer legacySrv.Close()

	res := newComparer(goSrv, legacySrv).compare(target{Method: "POST", Path: "/api/fetch-enrollments", SortBy: "enrollment_id"})

	assert.Equal(t, verdictMatch, res.Verdict)
}

func TestCompareErrorShapeOnly(t *testing.T) {
	goSrv := serveJSON(http.StatusBadRequest, `{"error":"Missing courseId"}`)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusBadRequest, `{"error":"Missing courseId in request body"}`)
	defer legacySrv.Close()

	c := newComparer(goSrv, legacySrv)
	assert.Equal(t, verdictMatch, c.compare(target{Path: "/api/fetch-enrollments"}).Verdict)

	c.strictError = true
	assert.Equal(t, verdictDiff, c.compare(target{Path: "/api/fetch-enrollments"}).Verdict)
}

func TestCompareStatusMismatch(t *testing.T) {
	goSrv := serveJSON(http.StatusOK, `{"success":true}`)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusInternalServerError, `{"error":"boom"}`)
	defer legacySrv.Close()

	res := newComparer(goSrv, legacySrv).compare(target{Method: "POST", Path: "api/enroll"})

	assert.Equal(t, verdictDiff, res.Verdict)
	assert.Equal(t, "status 200 != 500", res.Detail)
}

func TestCompareIgnoresListedKeys(t *testing.T) {
	goSrv := serveJSON(http.StatusOK, `{"data":{"id":1,"generated_at":"a"}}`)
	defer goSrv.Close()
	legacySrv := serveJSON(http.StatusOK, `{"data":{"id":1,"generated_at":"b"}}`)
	defer legacySrv.Close()

	res := newComparer(goSrv, legacySrv).compare(target{Path: "/x", Ignore: []string{"generated_at"}})

	assert.Equal(t, verdictMatch, res.Verdict)
}

func TestCompareUnreachable(t *testing.T) {
	legacySrv := serveJSON(http.StatusOK, `{}`)
	defer legacySrv.Close()
	goSrv := serveJSON(http.StatusOK, `{}`)
	goSrv.Close()

	res := newComparer(goSrv, legacySrv).compare(target{Path: "/x"})

	assert.Equal(t, verdictFailed, res.Verdict)
}

func TestLoadTargets(t *testing.T) {
	targets, err := loadTargets("targets.json")
	require.NoError(t, err)
	for _, tgt := range targets {
		assert.True(t, json.Valid(tgt.Body), tgt.label())
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"targets":[]}`), 0o600))
	_, err = loadTargets(empty)
	assert.Error(t, err)
}
