package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonztech/jz-cli/internal/ai"
	"github.com/jonztech/jz-cli/internal/auth"
	"github.com/jonztech/jz-cli/internal/config"
	"github.com/jonztech/jz-cli/internal/logger"
	"github.com/jonztech/jz-cli/internal/stream"
)

const testSecret = "test-secret"

type fakeUpstream struct {
	mu       sync.Mutex
	status   int
	body     string
	requests []map[string]interface{}
	auth     string
}

func (f *fakeUpstream) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]interface{}
	json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.auth = r.Header.Get("Authorization")
	f.mu.Unlock()

	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		io.WriteString(w, `{"error":"upstream says no"}`)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	io.WriteString(w, f.body)
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeUpstream) last() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type testGateway struct {
	up  *fakeUpstream
	srv *httptest.Server
}

func newTestGateway(t *testing.T, mutate func(cfg *config.Gateway)) *testGateway {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := &fakeUpstream{body: "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n"}
	upSrv := httptest.NewServer(http.HandlerFunc(up.handler))
	t.Cleanup(upSrv.Close)

	cfg := &config.Gateway{
		Addr:            ":0",
		UpstreamURL:     upSrv.URL,
		APIKey:          "provider-key",
		Model:           "test-model",
		JWTSecret:       testSecret,
		RatePerMinute:   0,
		UpstreamTimeout: 5 * time.Second,
		Environment:     "development",
	}
	if mutate != nil {
		mutate(cfg)
	}
	srv := httptest.NewServer(New(cfg, logger.Nop()).Handler())
	t.Cleanup(srv.Close)
	return &testGateway{up: up, srv: srv}
}

func token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := auth.NewVerifier(testSecret).Issue(id, time.Hour)
	require.NoError(t, err)
	return tok
}

func (g *testGateway) post(t *testing.T, bearer string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, g.srv.URL+"/v1/chat", strings.NewReader(string(data)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func errorOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func systemPromptOf(t *testing.T, req map[string]interface{}) string {
	t.Helper()
	msgs := req["messages"].([]interface{})
	first := msgs[0].(map[string]interface{})
	require.Equal(t, "system", first["role"])
	return first["content"].(string)
}

func hello(dev bool, knowledge ...string) ai.Request {
	return ai.Request{
		Messages:        []ai.Message{{Role: "user", Content: "hello"}},
		CustomKnowledge: knowledge,
		DeveloperMode:   dev,
	}
}

func TestChat_AnonymousRelaysStream(t *testing.T) {
	g := newTestGateway(t, nil)

	resp := g.post(t, "", hello(false))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `"content":"Hi"`)

	req := g.up.last()
	assert.Equal(t, "test-model", req["model"])
	assert.Equal(t, true, req["stream"])
	assert.Equal(t, "Bearer provider-key", g.up.auth)
	assert.NotContains(t, systemPromptOf(t, req), "DEVELOPER MODE")
}

func TestChat_AnonKeyIsAnonymous(t *testing.T) {
	g := newTestGateway(t, nil)

	resp := g.post(t, "public-anon-key", hello(false))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChat_DeveloperDenied(t *testing.T) {
	g := newTestGateway(t, nil)

	for name, bearer := range map[string]string{
		"anonymous": "",
		"member":    token(t, auth.Identity{UserID: "u1"}),
	} {
		t.Run(name, func(t *testing.T) {
			resp := g.post(t, bearer, hello(true, "confidential"))
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, msgDeveloperOnly, errorOf(t, resp))
		})
	}
	assert.Zero(t, g.up.calls(), "a denied request must not reach the provider")
}

func TestChat_DeveloperEntitled(t *testing.T) {
	g := newTestGateway(t, nil)
	bearer := token(t, auth.Identity{UserID: "d1", Roles: []string{auth.RoleDeveloper}})

	resp := g.post(t, bearer, hello(true, "fact one", "fact two"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	prompt := systemPromptOf(t, g.up.last())
	assert.Contains(t, prompt, "DEVELOPER MODE")
	assert.Contains(t, prompt, "fact one\nfact two")
}

func TestChat_KnowledgeIgnoredWithoutDeveloperMode(t *testing.T) {
	g := newTestGateway(t, nil)
	bearer := token(t, auth.Identity{UserID: "d1", Roles: []string{auth.RoleDeveloper}})

	resp := g.post(t, bearer, hello(false, "fact one"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, systemPromptOf(t, g.up.last()), "fact one")
}

func TestChat_NoSecretTrustsNoRole(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.Gateway) { cfg.JWTSecret = "" })
	bearer := token(t, auth.Identity{UserID: "d1", Roles: []string{auth.RoleDeveloper}})

	resp := g.post(t, bearer, hello(true))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChat_BadSignatureRejected(t *testing.T) {
	g := newTestGateway(t, nil)
	forged, err := auth.NewVerifier("wrong").Issue(auth.Identity{UserID: "x", Roles: []string{auth.RoleDeveloper}}, time.Hour)
	require.NoError(t, err)

	resp := g.post(t, forged, hello(true))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, g.up.calls())
}

func TestChat_InvalidBody(t *testing.T) {
	g := newTestGateway(t, nil)

	resp := g.post(t, "", map[string]interface{}{"messages": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = g.post(t, "", map[string]interface{}{"messages": []map[string]string{{"role": "system", "content": "x"}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "clients may not send system turns")
}

func TestChat_UpstreamStatusMapping(t *testing.T) {
	tests := []struct {
		upstream int
		want     int
		message  string
	}{
		{429, 429, msgRateLimited},
		{402, 402, msgQuota},
		{500, 500, msgUnavailable},
		{401, 500, msgUnavailable},
	}
	for _, tt := range tests {
		g := newTestGateway(t, nil)
		g.up.status = tt.upstream

		resp := g.post(t, "", hello(false))
		assert.Equal(t, tt.want, resp.StatusCode)
		assert.Equal(t, tt.message, errorOf(t, resp))
	}
}

func TestChat_ImageBecomesMultipart(t *testing.T) {
	g := newTestGateway(t, nil)

	resp := g.post(t, "", ai.Request{Messages: []ai.Message{{Role: "user", Image: "data:image/png;base64,AA=="}}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msgs := g.up.last()["messages"].([]interface{})
	parts := msgs[1].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "Please analyze this image.", parts[0].(map[string]interface{})["text"])
	img := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	assert.Equal(t, "data:image/png;base64,AA==", img["url"])
}

func TestChat_RateLimited(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.Gateway) { cfg.RatePerMinute = 1 })

	first := g.post(t, "", hello(false))
	assert.Equal(t, http.StatusOK, first.StatusCode)
	second := g.post(t, "", hello(false))
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, msgRateLimited, errorOf(t, second))

	other := g.post(t, token(t, auth.Identity{UserID: "u2"}), hello(false))
	assert.Equal(t, http.StatusOK, other.StatusCode, "buckets are per caller")
}

func TestHealth(t *testing.T) {
	g := newTestGateway(t, nil)
	resp, err := http.Get(g.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestToken_DisabledByDefault(t *testing.T) {
	g := newTestGateway(t, nil)
	resp, err := http.Post(g.srv.URL+"/v1/token", "application/json", strings.NewReader(`{"user_id":"u"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToken_IssuesVerifiableToken(t *testing.T) {
	g := newTestGateway(t, func(cfg *config.Gateway) { cfg.AllowDevTokens = true })

	resp, err := http.Post(g.srv.URL+"/v1/token", "application/json",
		strings.NewReader(`{"user_id":"u","roles":["developer"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	id, err := auth.NewVerifier(testSecret).Verify(body.Token)
	require.NoError(t, err)
	assert.True(t, id.HasRole(auth.RoleDeveloper))

	bad, err := http.Post(g.srv.URL+"/v1/token", "application/json", strings.NewReader(`{"user_id":"u","roles":["admin"]}`))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestClientThroughGateway(t *testing.T) {
	g := newTestGateway(t, nil)
	g.up.body = "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n"

	client := ai.NewClient(g.srv.URL+"/v1/chat", "", "anon")
	body, err := client.Stream(context.Background(), hello(false))
	require.NoError(t, err)
	defer body.Close()

	res, err := stream.Assemble(context.Background(), body, stream.NewAccumulator(nil), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, "Hello", res.Text)
	assert.True(t, res.Terminated)
}

func TestClientThroughGateway_Forbidden(t *testing.T) {
	g := newTestGateway(t, nil)

	_, err := ai.NewClient(g.srv.URL+"/v1/chat", "", "anon").Stream(context.Background(), hello(true))
	assert.ErrorIs(t, err, ai.ErrForbidden)
}

func TestBuildSystemPrompt(t *testing.T) {
	assert.Equal(t, systemPrompt, buildSystemPrompt(false, []string{"x"}))
	assert.NotContains(t, buildSystemPrompt(true, nil), "CUSTOM KNOWLEDGE")
}

func TestLimiter_Disabled(t *testing.T) {
	l := newLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, l.allow("k"))
	}
}
