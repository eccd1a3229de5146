// Command shadow_compare replays read-only portal requests against the legacy
// Next.js routes and this API and reports where the two disagree.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// target is one portal request. Only requests that leave the database
// untouched belong in the targets file.
type target struct {
	Name     string          `json:"name"`
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	Critical bool            `json:"critical"`
	// SortBy orders arrays of objects by this key before comparing, for
	// responses whose row order is not guaranteed by the query.
	SortBy string `json:"sort_by,omitempty"`
	// Ignore drops keys, at any depth, that legitimately differ.
	Ignore []string `json:"ignore,omitempty"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

type endpoint struct {
	name  string
	base  string
	token string
}

type reply struct {
	status   int
	body     []byte
	duration time.Duration
	err      error
}

type verdict string

const (
	verdictMatch  verdict = "match"
	verdictDiff   verdict = "diff"
	verdictFailed verdict = "failed"
)

type comparison struct {
	Target        target        `json:"target"`
	Verdict       verdict       `json:"verdict"`
	GoStatus      int           `json:"go_status"`
	LegacyStatus  int           `json:"legacy_status"`
	GoLatency     time.Duration `json:"go_latency_ns"`
	LegacyLatency time.Duration `json:"legacy_latency_ns"`
	Detail        string        `json:"detail,omitempty"`
}

func main() {
	var (
		goBase      = flag.String("go-base", "http://localhost:8080", "base URL of this API")
		legacyBase  = flag.String("legacy-base", "http://localhost:3000", "base URL of the legacy portal")
		targetsPath = flag.String("targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "JSON targets file")
		timeout     = flag.Duration("timeout", 5*time.Second, "per request timeout")
		goToken     = flag.String("go-token", os.Getenv("SHADOW_GO_TOKEN"), "bearer token for this API")
		legacyToken = flag.String("legacy-token", os.Getenv("SHADOW_LEGACY_TOKEN"), "bearer token for the legacy portal")
		asJSON      = flag.Bool("json", false, "print the report as JSON")
		strictError = flag.Bool("strict-errors", false, "compare error messages, not only the {error} shape")
	)
	flag.Parse()

	logr, _ := zap.NewDevelopment()
	defer logr.Sync() //nolint:errcheck

	targets, err := loadTargets(*targetsPath)
	if err != nil {
		logr.Fatal("load targets", zap.String("path", *targetsPath), zap.Error(err))
	}

	c := comparer{
		client:      &http.Client{Timeout: *timeout},
		goAPI:       endpoint{name: "go", base: *goBase, token: *goToken},
		legacyAPI:   endpoint{name: "legacy", base: *legacyBase, token: *legacyToken},
		strictError: *strictError,
	}

	results := make([]comparison, 0, len(targets))
	breaking, optional := 0, 0
	for _, t := range targets {
		res := c.compare(t)
		if res.Verdict != verdictMatch {
			if t.Critical {
				breaking++
			} else {
				optional++
			}
			logr.Warn("shadow mismatch", zap.String("target", res.Target.label()), zap.String("verdict", string(res.Verdict)), zap.String("detail", res.Detail))
		}
		results = append(results, res)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]interface{}{"results": results, "breaking": breaking, "optional": optional})
	} else {
		printReport(os.Stdout, results)
		fmt.Printf("breaking: %d, optional: %d\n", breaking, optional)
	}
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return file.Targets, nil
}

func (t target) label() string {
	if t.Name != "" {
		return t.Name
	}
	return strings.ToUpper(t.Method) + " " + t.Path
}

type comparer struct {
	client      *http.Client
	goAPI       endpoint
	legacyAPI   endpoint
	strictError bool
}

// compare issues both requests concurrently so latency figures are comparable.
func (c comparer) compare(t target) comparison {
	var goReply, legacyReply reply
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); goReply = c.do(c.goAPI, t) }()
	go func() { defer wg.Done(); legacyReply = c.do(c.legacyAPI, t) }()
	wg.Wait()

	res := comparison{
		Target:        t,
		GoStatus:      goReply.status,
		LegacyStatus:  legacyReply.status,
		GoLatency:     goReply.duration,
		LegacyLatency: legacyReply.duration,
	}
	switch {
	case goReply.err != nil:
		res.Verdict, res.Detail = verdictFailed, "go: "+goReply.err.Error()
	case legacyReply.err != nil:
		res.Verdict, res.Detail = verdictFailed, "legacy: "+legacyReply.err.Error()
	case goReply.status != legacyReply.status:
		res.Verdict, res.Detail = verdictDiff, fmt.Sprintf("status %d != %d", goReply.status, legacyReply.status)
	case !c.bodiesMatch(t, goReply, legacyReply):
		res.Verdict, res.Detail = verdictDiff, "body differs"
	default:
		res.Verdict = verdictMatch
	}
	return res
}

func (c comparer) do(api endpoint, t target) reply {
	method := strings.ToUpper(strings.TrimSpace(t.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := t.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(t.Body) > 0 {
		body = bytes.NewReader(t.Body)
	}
	req, err := http.NewRequest(method, strings.TrimRight(api.base, "/")+path, body)
	if err != nil {
		return reply{err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if api.token != "" {
		req.Header.Set("Authorization", "Bearer "+api.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return reply{err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply{status: resp.StatusCode, err: fmt.Errorf("read %s body: %w", api.name, err)}
	}
	return reply{status: resp.StatusCode, body: data, duration: time.Since(start)}
}

// bodiesMatch compares decoded JSON. Error responses only need the {error}
// shape unless strict comparison is requested.
func (c comparer) bodiesMatch(t target, a, b reply) bool {
	if bytes.Equal(bytes.TrimSpace(a.body), bytes.TrimSpace(b.body)) {
		return true
	}
	var aj, bj interface{}
	if json.Unmarshal(a.body, &aj) != nil || json.Unmarshal(b.body, &bj) != nil {
		return false
	}
	if a.status >= 400 && !c.strictError {
		return hasErrorKey(aj) && hasErrorKey(bj)
	}
	aj = normalize(aj, t)
	bj = normalize(bj, t)
	return reflect.DeepEqual(aj, bj)
}

func hasErrorKey(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	msg, ok := m["error"].(string)
	return ok && msg != ""
}

// normalize folds whole floats to ints, drops ignored keys and sorts arrays
// of objects on the target's sort key.
func normalize(v interface{}, t target) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for _, k := range t.Ignore {
			delete(val, k)
		}
		for k, inner := range val {
			val[k] = normalize(inner, t)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = normalize(inner, t)
		}
		if t.SortBy != "" {
			sort.SliceStable(val, func(i, j int) bool {
				return fmt.Sprint(sortKey(val[i], t.SortBy)) < fmt.Sprint(sortKey(val[j], t.SortBy))
			})
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
		return val
	default:
		return v
	}
}

func sortKey(v interface{}, key string) interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		if k, ok := m[key].(int64); ok {
			return fmt.Sprintf("%020d", k)
		}
		return m[key]
	}
	return nil
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Shadow compare")
	fmt.Fprintln(w, "==============")
	for _, res := range results {
		fmt.Fprintf(w, "[%s] %s (critical=%t)\n", strings.ToUpper(string(res.Verdict)), res.Target.label(), res.Target.Critical)
		fmt.Fprintf(w, "  go %d in %s, legacy %d in %s\n", res.GoStatus, res.GoLatency, res.LegacyStatus, res.LegacyLatency)
		if res.Detail != "" {
			fmt.Fprintf(w, "  %s\n", res.Detail)
		}
	}
}
