package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/adapter/inbox"
	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/dayanaadylkhanova/powgate/internal/service"
	"github.com/dayanaadylkhanova/powgate/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() { gin.SetMode(gin.TestMode) }

var testChallenge = entity.Challenge{
	Algorithm: "SHA-256",
	Challenge: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
	Salt:      "00112233445566778899aabbccddeeff?expires=1700000300&max=100000",
	Signature: "c0ffee",
	MaxNumber: 100000,
}

var testSolution = entity.SolutionFor(testChallenge, 4242)

type mocks struct {
	issuer   *MockIssuer
	verifier *MockVerifier
	inbox    *MockInbox
}

func newTestServer(t *testing.T) (*Server, mocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := mocks{
		issuer:   NewMockIssuer(ctrl),
		verifier: NewMockVerifier(ctrl),
		inbox:    NewMockInbox(ctrl),
	}
	return NewServer(logger.Discard(), "ignored:0", 200*time.Millisecond, m.issuer, m.verifier, m.inbox), m
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonReq(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, strings.NewReader(string(raw)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body["error"]
}

func mustPayload(t *testing.T, sol entity.Solution) string {
	t.Helper()
	p, err := entity.EncodePayload(sol)
	require.NoError(t, err)
	return p
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIssue_OK(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.issuer.EXPECT().NewChallenge(service.IssueOptions{}).Return(testChallenge, nil)

	rec := do(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/api/challenge", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var got entity.Challenge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testChallenge, got)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, k := range []string{"algorithm", "challenge", "salt", "signature", "maxnumber"} {
		assert.Contains(t, raw, k)
	}
	assert.Len(t, raw, 5)
}

func TestIssue_FailureIsGeneric(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.issuer.EXPECT().NewChallenge(gomock.Any()).
		Return(entity.Challenge{}, fmt.Errorf("%w: hmac key super-secret rejected", service.ErrConfiguration))

	rec := do(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/api/challenge", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", errorBody(t, rec))
	assert.NotContains(t, rec.Body.String(), "super-secret")
}

func TestVerify_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		body       string
		verifyErr  error
		callVerify bool
		wantCode   int
		wantBody   string
	}{
		{
			name:       "object_ok",
			body:       mustJSON(testSolution),
			callVerify: true,
			wantCode:   http.StatusOK,
			wantBody:   `{"verified":true}`,
		},
		{
			name:       "payload_ok",
			body:       `{"payload":"` + encoded(testSolution) + `"}`,
			callVerify: true,
			wantCode:   http.StatusOK,
			wantBody:   `{"verified":true}`,
		},
		{
			name:       "expired_is_generic",
			body:       mustJSON(testSolution),
			verifyErr:  fmt.Errorf("%w: %w", service.ErrRejected, service.ErrExpired),
			callVerify: true,
			wantCode:   http.StatusForbidden,
			wantBody:   `{"error":"challenge rejected"}`,
		},
		{
			name:       "bad_signature_is_generic",
			body:       mustJSON(testSolution),
			verifyErr:  fmt.Errorf("%w: %w", service.ErrRejected, service.ErrInvalidSignature),
			callVerify: true,
			wantCode:   http.StatusForbidden,
			wantBody:   `{"error":"challenge rejected"}`,
		},
		{
			name:     "not_json",
			body:     "not a json",
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"malformed solution"}`,
		},
		{
			name:     "empty_object",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"malformed solution"}`,
		},
		{
			name:     "only_number",
			body:     `{"number":7}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"malformed solution"}`,
		},
		{
			name:     "bad_payload",
			body:     `{"payload":"%%%"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"malformed solution"}`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv, m := newTestServer(t)
			if tc.callVerify {
				m.verifier.EXPECT().Verify(testSolution).Return(tc.verifyErr)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/challenge/verify", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := do(t, srv.Handler(), req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
		})
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func encoded(sol entity.Solution) string {
	p, err := entity.EncodePayload(sol)
	if err != nil {
		panic(err)
	}
	return p
}

var contactBody = map[string]string{"name": "Ann", "email": "ann@example.com", "message": "hello"}

func TestContact_JSONField(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.verifier.EXPECT().Verify(testSolution).Return(nil)
	m.inbox.EXPECT().
		Submit(gomock.Any(), entity.Submission{Name: "Ann", Email: "ann@example.com", Message: "hello"}).
		Return(entity.Submission{ID: "id-1"}, nil)

	body := map[string]string{"altcha": mustPayload(t, testSolution)}
	for k, v := range contactBody {
		body[k] = v
	}
	rec := do(t, srv.Handler(), jsonReq(t, http.MethodPost, "/api/contact", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"id-1"}`, rec.Body.String())
}

func TestContact_Header(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.verifier.EXPECT().Verify(testSolution).Return(nil)
	m.inbox.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(entity.Submission{ID: "id-2"}, nil)

	req := jsonReq(t, http.MethodPost, "/api/contact", contactBody)
	req.Header.Set(HeaderSolution, mustPayload(t, testSolution))
	rec := do(t, srv.Handler(), req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestContact_Form(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.verifier.EXPECT().Verify(testSolution).Return(nil)
	m.inbox.EXPECT().
		Submit(gomock.Any(), entity.Submission{Name: "Ann", Email: "ann@example.com", Message: "from a form"}).
		Return(entity.Submission{ID: "id-3"}, nil)

	form := url.Values{}
	form.Set("name", " Ann ")
	form.Set("email", "ann@example.com")
	form.Set("message", "from a form")
	form.Set(FieldSolution, mustPayload(t, testSolution))
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, srv.Handler(), req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"id-3"}`, rec.Body.String())
}

func TestContact_MissingSolution(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	// no Verify, no Submit expected
	rec := do(t, srv.Handler(), jsonReq(t, http.MethodPost, "/api/contact", contactBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed solution", errorBody(t, rec))
}

func TestContact_Rejected(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.verifier.EXPECT().Verify(testSolution).Return(fmt.Errorf("%w: %w", service.ErrRejected, service.ErrOutOfRange))

	req := jsonReq(t, http.MethodPost, "/api/contact", contactBody)
	req.Header.Set(HeaderSolution, mustPayload(t, testSolution))
	rec := do(t, srv.Handler(), req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "challenge rejected", errorBody(t, rec))
	assert.NotContains(t, rec.Body.String(), "range")
}

func TestContact_InvalidFields(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"bad_email":     {"name": "Ann", "email": "not-an-email", "message": "hi"},
		"no_message":    {"name": "Ann", "email": "ann@example.com"},
		"no_name":       {"email": "ann@example.com", "message": "hi"},
		"long_name":     {"name": strings.Repeat("a", 201), "email": "ann@example.com", "message": "hi"},
		"empty_payload": {},
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			srv, m := newTestServer(t)
			m.verifier.EXPECT().Verify(gomock.Any()).Return(nil)

			req := jsonReq(t, http.MethodPost, "/api/contact", body)
			req.Header.Set(HeaderSolution, mustPayload(t, testSolution))
			rec := do(t, srv.Handler(), req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid submission", errorBody(t, rec))
		})
	}
}

func TestContact_InboxFailure(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.verifier.EXPECT().Verify(gomock.Any()).Return(nil)
	m.inbox.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(entity.Submission{}, errors.New("disk full"))

	req := jsonReq(t, http.MethodPost, "/api/contact", contactBody)
	req.Header.Set(HeaderSolution, mustPayload(t, testSolution))
	rec := do(t, srv.Handler(), req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk")
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	generated := rec.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "6f1c1b9e-51e4-4a4a-9d9e-0c1c2a9f3b11")
	rec = do(t, srv.Handler(), req)
	assert.Equal(t, "6f1c1b9e-51e4-4a4a-9d9e-0c1c2a9f3b11", rec.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	rec = do(t, srv.Handler(), req)
	assert.NotEqual(t, "<script>", rec.Header().Get(HeaderRequestID))
}

func TestIssue_ParallelMany(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)

	const N = 10
	m.issuer.EXPECT().NewChallenge(gomock.Any()).Times(N).Return(testChallenge, nil)

	var wg sync.WaitGroup
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			rec := do(t, srv.Handler(), httptest.NewRequest(http.MethodGet, "/api/challenge", nil))
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d; want 200", rec.Code)
			}
		}()
	}
	wg.Wait()
}

// The real issuer, verifier and inbox behind the router: a client solves the
// challenge and posts the contact form, then replays it.
func TestEndToEnd_SolveAndSubmit(t *testing.T) {
	t.Parallel()

	iss, err := service.NewIssuer("k1-end-to-end-key", service.WithMaxNumber(20_000))
	require.NoError(t, err)
	ver, err := service.NewVerifier("k1-end-to-end-key")
	require.NoError(t, err)
	box := inbox.NewMemory()

	srv := NewServer(logger.Discard(), "ignored:0", time.Second, iss, ver, box)
	h := srv.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/challenge", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ch entity.Challenge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))

	n, err := service.Solve(context.Background(), ch, 2)
	require.NoError(t, err)
	sol := entity.SolutionFor(ch, n)

	rec = do(t, h, jsonReq(t, http.MethodPost, "/api/challenge/verify", sol))
	assert.Equal(t, http.StatusOK, rec.Code)

	wrong := sol
	wrong.Number = ch.MaxNumber + 1
	rec = do(t, h, jsonReq(t, http.MethodPost, "/api/challenge/verify", wrong))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := jsonReq(t, http.MethodPost, "/api/contact", contactBody)
	req.Header.Set(HeaderSolution, mustPayload(t, sol))
	rec = do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	stored, err := box.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "ann@example.com", stored[0].Email)

	// a different key never accepts it
	other, err := service.NewVerifier("k2-end-to-end-key")
	require.NoError(t, err)
	h2 := NewServer(logger.Discard(), "ignored:0", time.Second, iss, other, box).Handler()
	rec = do(t, h2, jsonReq(t, http.MethodPost, "/api/challenge/verify", sol))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRun_GracefulShutdown(t *testing.T) {
	t.Parallel()

	srv, m := newTestServer(t)
	m.issuer.EXPECT().NewChallenge(gomock.Any()).AnyTimes().Return(testChallenge, nil)

	addr := freeTCPAddr(t)
	srv.addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	client := &http.Client{Timeout: 500 * time.Millisecond}
	deadline := time.Now().Add(2 * time.Second)
	var (
		resp *http.Response
		err  error
	)
	for time.Now().Before(deadline) {
		resp, err = client.Get("http://" + addr + "/api/challenge")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err, "server did not start listening on %s", addr)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestRun_ListenError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv, _ := newTestServer(t)
	srv.addr = ln.Addr().String()

	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func freeTCPAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen temp: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
