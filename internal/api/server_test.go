package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/chronocore/internal/engine"
	"github.com/talgya/chronocore/internal/entropy"
	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/llm"
	"github.com/talgya/chronocore/internal/metrics"
	"github.com/talgya/chronocore/internal/persistence"
)

const testAdminKey = "secret"

type testServer struct {
	*httptest.Server
	db  *persistence.DB
	eng *engine.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := metrics.New()
	eng := engine.New(engine.Deps{Store: db, Seeds: entropy.NewSequence(11), Metrics: m})
	s := &Server{Eng: eng, Games: db, Metrics: m.Handler(), AdminKey: testAdminKey}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, db: db, eng: eng}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (ts *testServer) createGame(t *testing.T) *game.State {
	t.Helper()
	resp := ts.do(t, "POST", "/api/v1/games", testAdminKey, map[string]any{
		"name": "API Weave",
		"seed": 9,
		"players": []map[string]string{
			{"username": "ada", "role": "ChronoDiplomat"},
			{"username": "bo", "role": "ShadowBroker"},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	gs := decode[game.State](t, resp)
	return &gs
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, "GET", "/api/v1/status", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["name"] != "ChronoCore" {
		t.Fatalf("body = %v", body)
	}
	if body["games"] != float64(0) {
		t.Fatalf("games = %v", body["games"])
	}
}

// TestAdminAuth ensures admin routes reject missing and wrong tokens.
func TestAdminAuth(t *testing.T) {
	ts := newTestServer(t)
	if resp := ts.do(t, "POST", "/api/v1/games", "", map[string]any{}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", resp.StatusCode)
	}
	if resp := ts.do(t, "POST", "/api/v1/games", "wrong", map[string]any{}); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}

	s := &Server{Eng: ts.eng}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/games", strings.NewReader("{}")))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin status = %d", rec.Code)
	}
}

// TestGameLifecycle walks a game through creation, a turn, analysis and a
// quest over HTTP.
func TestGameLifecycle(t *testing.T) {
	ts := newTestServer(t)
	gs := ts.createGame(t)
	if len(gs.Players) != 2 || len(gs.Realms) == 0 {
		t.Fatalf("created game = %+v", gs)
	}

	resp := ts.do(t, "GET", "/api/v1/games/"+gs.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	resp = ts.do(t, "POST", "/api/v1/games/"+gs.ID+"/turns", testAdminKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d", resp.StatusCode)
	}
	sum := decode[engine.TurnSummary](t, resp)
	if sum.Turn != 1 {
		t.Fatalf("turn = %d", sum.Turn)
	}

	resp = ts.do(t, "GET", "/api/v1/games/"+gs.ID+"/timelines/"+gs.Timelines[0].ID+"/analysis", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analysis status = %d", resp.StatusCode)
	}

	ada := gs.Players[0]
	resp = ts.do(t, "POST", "/api/v1/games/"+gs.ID+"/quests", "", map[string]string{"player_id": ada.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("quest status = %d", resp.StatusCode)
	}
	q := decode[llm.Quest](t, resp)
	if !q.Fallback || q.ID == "" {
		t.Fatalf("quest = %+v", q)
	}

	resp = ts.do(t, "POST", "/api/v1/games/"+gs.ID+"/quests/"+q.ID+"/complete", "", map[string]string{"player_id": ada.ID, "option_id": "2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d", resp.StatusCode)
	}

	resp = ts.do(t, "GET", "/api/v1/games", "", nil)
	games := decode[[]persistence.GameSummary](t, resp)
	if len(games) != 1 || games[0].Turn != 1 {
		t.Fatalf("games = %+v", games)
	}
}

func TestDilemmaOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	gs := ts.createGame(t)
	realmID := gs.Players[0].OwnedRealms[0]

	resp := ts.do(t, "POST", "/api/v1/games/"+gs.ID+"/realms/"+realmID+"/dilemmas", "", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("dilemma status = %d", resp.StatusCode)
	}
	d := decode[game.Dilemma](t, resp)

	path := "/api/v1/games/" + gs.ID + "/realms/" + realmID + "/dilemmas/" + d.ID + "/resolve"
	resp = ts.do(t, "POST", path, "", map[string]string{"player_id": gs.Players[0].ID, "option_id": "3"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve status = %d", resp.StatusCode)
	}
	resp = ts.do(t, "POST", path, "", map[string]string{"player_id": gs.Players[0].ID, "option_id": "3"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second resolve status = %d", resp.StatusCode)
	}
}

// TestErrorMapping ensures validation, missing and store errors map to 400,
// 404 and 503.
func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	gs := ts.createGame(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"missing game", "GET", "/api/v1/games/nope", "", nil, http.StatusNotFound},
		{"missing timeline", "GET", "/api/v1/games/" + gs.ID + "/timelines/nope/analysis", "", nil, http.StatusNotFound},
		{"empty decision", "POST", "/api/v1/games/" + gs.ID + "/decisions", "", map[string]string{"player_id": gs.Players[0].ID}, http.StatusBadRequest},
		{"unknown player", "POST", "/api/v1/games/" + gs.ID + "/quests", "", map[string]string{"player_id": "ghost"}, http.StatusNotFound},
		{"bad role", "POST", "/api/v1/games", testAdminKey, map[string]any{"name": "x", "players": []map[string]string{{"username": "a", "role": "Wizard"}}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if resp := ts.do(t, tc.method, tc.path, tc.token, tc.body); resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}

	ts.db.Close()
	resp := ts.do(t, "GET", "/api/v1/games/"+gs.ID, "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("closed store status = %d", resp.StatusCode)
	}
}

func TestBadJSON(t *testing.T) {
	ts := newTestServer(t)
	req, _ := http.NewRequest("POST", ts.URL+"/api/v1/games", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestClockControl(t *testing.T) {
	ts := newTestServer(t)
	gs := ts.createGame(t)

	resp := ts.do(t, "POST", "/api/v1/clock", testAdminKey, map[string]any{"paused": true, "register": gs.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clock status = %d", resp.StatusCode)
	}
	if !ts.eng.Clock.Paused() || len(ts.eng.Clock.Games()) != 1 {
		t.Fatalf("clock paused=%v games=%v", ts.eng.Clock.Paused(), ts.eng.Clock.Games())
	}

	resp = ts.do(t, "POST", "/api/v1/clock", testAdminKey, map[string]any{"register": "nope"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("register unknown status = %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	gs := ts.createGame(t)
	ts.do(t, "POST", "/api/v1/games/"+gs.ID+"/turns", testAdminKey, nil)

	resp := ts.do(t, "GET", "/metrics", "", nil)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "chronocore_turns_total 1") {
		t.Fatalf("metrics missing turn count")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatalf("other ip should pass")
	}
	if got := rl.RetryAfter("1.2.3.4"); got != 61 {
		t.Fatalf("retry after = %d, want 61", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatalf("window reset should allow again")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(r); got != "10.0.0.1" {
		t.Fatalf("ip = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(r); got != "203.0.113.9" {
		t.Fatalf("forwarded ip = %q", got)
	}
}
