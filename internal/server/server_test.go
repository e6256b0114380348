package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"wayline/internal/content"
	"wayline/internal/db"
	"wayline/internal/domain"
	"wayline/internal/engine"
	"wayline/internal/migrate"
	"wayline/internal/repo"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, content.Default("crossroads"))
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{Disabled: true}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestTutorialOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions", map[string]any{"id": "web"}, nil)
	if createRes.StatusCode != http.StatusOK {
		t.Fatalf("create session status %d: %s", createRes.StatusCode, string(data))
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if snap.Player.Coins != 20 {
		t.Fatalf("expected starting coins 20, got %d", snap.Player.Coins)
	}

	startRes, startBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/web/narratives/tutorial/start", nil, nil)
	if startRes.StatusCode != http.StatusOK {
		t.Fatalf("start narrative status %d: %s", startRes.StatusCode, string(startBody))
	}

	actionsRes, actionsBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/sessions/web/actions", nil, nil)
	if actionsRes.StatusCode != http.StatusOK {
		t.Fatalf("list actions status %d: %s", actionsRes.StatusCode, string(actionsBody))
	}
	var views []domain.ActionView
	if err := json.Unmarshal(actionsBody, &views); err != nil {
		t.Fatalf("unmarshal actions: %v", err)
	}
	if len(views) != 1 || views[0].Action.ID != "travel-old-road" {
		t.Fatalf("first step should gate the catalog down to travel: %s", string(actionsBody))
	}

	blockedRes, blockedBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/web/actions/greet-keeper", nil, nil)
	if blockedRes.StatusCode != http.StatusOK {
		t.Fatalf("gated attempt status %d: %s", blockedRes.StatusCode, string(blockedBody))
	}
	var blocked domain.ActionResult
	_ = json.Unmarshal(blockedBody, &blocked)
	if blocked.OK || blocked.Reason == "" {
		t.Fatalf("gated attempt should refuse with a reason: %s", string(blockedBody))
	}

	travelRes, travelBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/web/actions/travel-old-road", nil, nil)
	if travelRes.StatusCode != http.StatusOK {
		t.Fatalf("travel status %d: %s", travelRes.StatusCode, string(travelBody))
	}
	var travel domain.ActionResult
	if err := json.Unmarshal(travelBody, &travel); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !travel.OK || len(travel.StepsAdvanced) != 1 {
		t.Fatalf("travel should succeed and advance a step: %s", string(travelBody))
	}

	statusRes, statusBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/sessions/web/narratives", nil, nil)
	if statusRes.StatusCode != http.StatusOK {
		t.Fatalf("narrative status %d: %s", statusRes.StatusCode, string(statusBody))
	}
	var statuses []engine.NarrativeStatus
	if err := json.Unmarshal(statusBody, &statuses); err != nil {
		t.Fatalf("unmarshal statuses: %v", err)
	}
	if len(statuses) == 0 || statuses[0].StepIndex != 1 {
		t.Fatalf("tutorial should sit at step 1: %s", string(statusBody))
	}
}

func TestSessionNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/sessions/ghost", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found code, got %s", string(data))
	}
}

func TestNarrativeConflictOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions", map[string]any{"id": "s"}, nil)
	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/s/narratives/tutorial/start", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("first start: %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/s/narratives/tutorial/start", nil, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("second start should conflict, got %d %s", res.StatusCode, string(body))
	}
}

func TestQueueEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions", map[string]any{"id": "q"}, nil)

	for _, id := range []string{"d1", "d2"} {
		res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/q/queue", map[string]any{
			"id":        id,
			"sender":    "keeper-mara",
			"recipient": "courier-brask",
		}, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("accept %s: %d %s", id, res.StatusCode, string(body))
		}
	}

	forceRes, forceBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/q/queue/force", map[string]any{
		"item":    map[string]any{"id": "urgent", "sender": "patron-elowen"},
		"penalty": map[string]any{"resolve": -1},
	}, nil)
	if forceRes.StatusCode != http.StatusOK {
		t.Fatalf("force: %d %s", forceRes.StatusCode, string(forceBody))
	}
	var forced struct {
		Evicted *domain.DeliveryItem `json:"evicted"`
	}
	_ = json.Unmarshal(forceBody, &forced)
	if forced.Evicted != nil {
		t.Fatalf("queue below capacity should evict nothing: %s", string(forceBody))
	}

	showRes, showBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/sessions/q/queue", nil, nil)
	if showRes.StatusCode != http.StatusOK {
		t.Fatalf("show queue: %d %s", showRes.StatusCode, string(showBody))
	}
	var items []domain.DeliveryItem
	if err := json.Unmarshal(showBody, &items); err != nil {
		t.Fatalf("unmarshal queue: %v", err)
	}
	if len(items) != 3 || items[0].ID != "urgent" {
		t.Fatalf("forced item should sit at position 1: %s", string(showBody))
	}

	deliverRes, deliverBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/q/queue/1/deliver", map[string]any{
		"reward": map[string]any{"coins": 4},
	}, nil)
	if deliverRes.StatusCode != http.StatusOK {
		t.Fatalf("deliver: %d %s", deliverRes.StatusCode, string(deliverBody))
	}
	var delivered domain.ActionResult
	_ = json.Unmarshal(deliverBody, &delivered)
	if !delivered.OK || delivered.Applied.Coins != 4 {
		t.Fatalf("delivery reward should apply: %s", string(deliverBody))
	}

	badRes, badBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions/q/queue/9/deliver", map[string]any{}, nil)
	if badRes.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range position should be 400, got %d %s", badRes.StatusCode, string(badBody))
	}
}

func TestFlagEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v0/sessions", map[string]any{"id": "f"}, nil)

	res, body := doJSON(t, client, http.MethodPut, srv.URL+"/v0/sessions/f/flags/scout_hired", map[string]any{"flag": true}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set flag: %d %s", res.StatusCode, string(body))
	}
	var snap domain.FlagSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("unmarshal flags: %v", err)
	}
	if !snap.Flags["scout_hired"] {
		t.Fatalf("flag should be set: %s", string(body))
	}

	res, body = doJSON(t, client, http.MethodPut, srv.URL+"/v0/sessions/f/flags/empty", map[string]any{}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty body should be 400, got %d %s", res.StatusCode, string(body))
	}
}

func TestWhoamiWithAuthDisabled(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/auth/whoami", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("whoami: %d %s", res.StatusCode, string(data))
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal principal: %v", err)
	}
	if p.Source != "anonymous" || p.ActorID != "" {
		t.Fatalf("disabled auth should report anonymous, got %+v", p)
	}
}

func TestAuthRequiredWhenEnabled(t *testing.T) {
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, content.Default("crossroads"))
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: "test-secret"}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	defer func() {
		srv.Shutdown(context.Background())
		ln.Close()
	}()
	url := "http://" + ln.Addr().String()
	client := &http.Client{}

	res, _ := doJSON(t, client, http.MethodGet, url+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health should bypass auth, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, url+"/v0/sessions", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing credentials should be 401, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, url+"/v0/sessions", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token should be 401, got %d", res.StatusCode)
	}

	key := domain.APIKey{ID: "k1", ActorID: "gm", Name: "table", KeyHash: repo.HashAPIKey("raw-key")}
	if err := e.Repo.InsertAPIKey(context.Background(), nil, key); err != nil {
		t.Fatalf("insert api key: %v", err)
	}
	res, data := doJSON(t, client, http.MethodGet, url+"/v0/auth/whoami", nil, map[string]string{"X-Api-Key": "raw-key"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key whoami: %d %s", res.StatusCode, string(data))
	}
	var p Principal
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal principal: %v", err)
	}
	if p.ActorID != "gm" || p.Source != "api_key" {
		t.Fatalf("expected api-key principal, got %+v", p)
	}
}
