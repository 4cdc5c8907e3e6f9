package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"quiz-service/internal/app"
	"quiz-service/internal/domain"
	"quiz-service/internal/infra/memory"
)

func TestGetQuestions(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/questions/1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var set []domain.QuestionWithOptions
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(set) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(set))
	}
	for _, q := range set {
		if len(q.Options) != 4 {
			t.Fatalf("question %d: expected 4 options, got %d", q.ID, len(q.Options))
		}
		for _, o := range q.Options {
			if o.ID/100 != q.ID {
				t.Fatalf("option %d attached to question %d", o.ID, q.ID)
			}
		}
	}
}

func TestGetQuestionsUnknownCategoryIsEmptyArray(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	for _, category := range []string{"99", "abc"} {
		resp, err := http.Get(srv.URL + "/api/questions/" + category)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		body := readBody(t, resp)
		if resp.StatusCode != http.StatusOK || strings.TrimSpace(body) != "[]" {
			t.Fatalf("category %s: expected 200 [], got %d %s", category, resp.StatusCode, body)
		}
	}
}

func TestSubmitScores(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/submit", `{"answers":[{"question_id":1,"selected_option_id":103},{"question_id":2,"selected_option_id":204}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]any
	decodeBody(t, resp, &result)
	if result["score"] != float64(7) || result["total"] != float64(8) || result["percentage"] != "87.50" {
		t.Fatalf("unexpected score %+v", result)
	}
}

func TestSubmitRejectsMalformedBodies(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	cases := map[string]string{
		"not json":      `{"answers":`,
		"zero option":   `{"answers":[{"question_id":1,"selected_option_id":0}]}`,
		"missing qid":   `{"answers":[{"selected_option_id":101}]}`,
		"string answer": `{"answers":["x"]}`,
		"unknown field": `{"answers":[{"question_id":1,"selected_option_id":101,"option_id":101}]}`,
	}
	for name, body := range cases {
		resp := postJSON(t, srv.URL+"/api/submit", body)
		var out map[string]string
		decodeBody(t, resp, &out)
		if resp.StatusCode != http.StatusBadRequest || out["error"] == "" {
			t.Fatalf("%s: expected 400 with error, got %d %+v", name, resp.StatusCode, out)
		}
	}
}

func TestSubmitEmptyAnswers(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/submit", `{"answers":[]}`)
	var result domain.ScoreResult
	decodeBody(t, resp, &result)
	if resp.StatusCode != http.StatusOK || result.Total != 0 || result.Percentage != "0.00" {
		t.Fatalf("expected 0 of 0 at 0.00, got %d %+v", resp.StatusCode, result)
	}
}

func TestSignupAndLogin(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	signup := `{"fullname":"Alice Doe","email":"alice@example.com","password":"s3cret"}`
	resp := postJSON(t, srv.URL+"/api/signup", signup)
	var msg map[string]string
	decodeBody(t, resp, &msg)
	if resp.StatusCode != http.StatusOK || msg["message"] != "User registered successfully!" {
		t.Fatalf("signup: %d %+v", resp.StatusCode, msg)
	}

	resp = postJSON(t, srv.URL+"/api/signup", signup)
	decodeBody(t, resp, &msg)
	if resp.StatusCode != http.StatusBadRequest || msg["message"] != "Email already registered" {
		t.Fatalf("duplicate signup: %d %+v", resp.StatusCode, msg)
	}

	resp = postJSON(t, srv.URL+"/api/login", `{"email":"alice@example.com","password":"s3cret"}`)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %d %s", resp.StatusCode, body)
	}
	if strings.Contains(body, "password") || strings.Contains(body, "$2a$") {
		t.Fatalf("login response leaks credentials: %s", body)
	}
	var login loginResponse
	if err := json.Unmarshal([]byte(body), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if !login.Success || login.User == nil || login.User.Email != "alice@example.com" || login.User.Fullname != "Alice Doe" || login.User.ID == 0 {
		t.Fatalf("unexpected login response %+v", login)
	}
}

func TestSignupRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	cases := map[string]string{
		"empty password": `{"fullname":"Carol","email":"carol@example.com","password":""}`,
		"missing email":  `{"fullname":"Carol","password":"s3cret"}`,
	}
	for name, body := range cases {
		resp := postJSON(t, srv.URL+"/api/signup", body)
		var out messageResponse
		decodeBody(t, resp, &out)
		if resp.StatusCode != http.StatusBadRequest || out.Message != "Missing email or password" {
			t.Fatalf("%s: expected 400 missing credentials, got %d %+v", name, resp.StatusCode, out)
		}
	}

	// Nothing was stored, so the email is still free.
	resp := postJSON(t, srv.URL+"/api/signup", `{"fullname":"Carol","email":"carol@example.com","password":"s3cret"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected signup to succeed, got %d", resp.StatusCode)
	}
}

func TestSignupRejectsUnknownFields(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/signup", `{"fullname":"Dan","email":"dan@example.com","password":"x","role":"admin"}`)
	var out messageResponse
	decodeBody(t, resp, &out)
	if resp.StatusCode != http.StatusBadRequest || out.Message != "Invalid request body" {
		t.Fatalf("expected 400 invalid body, got %d %+v", resp.StatusCode, out)
	}
}

func TestLoginFailures(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	postJSON(t, srv.URL+"/api/signup", `{"fullname":"Bob","email":"bob@example.com","password":"right"}`).Body.Close()

	cases := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing password", `{"email":"bob@example.com"}`, http.StatusBadRequest, "Missing email or password"},
		{"missing email", `{"password":"right"}`, http.StatusBadRequest, "Missing email or password"},
		{"unknown email", `{"email":"nobody@example.com","password":"right"}`, http.StatusUnauthorized, "User not found"},
		{"wrong password", `{"email":"bob@example.com","password":"wrong"}`, http.StatusUnauthorized, "Incorrect password"},
	}
	for _, tc := range cases {
		resp := postJSON(t, srv.URL+"/api/login", tc.body)
		var out loginResponse
		decodeBody(t, resp, &out)
		if resp.StatusCode != tc.status || out.Success || out.Message != tc.message || out.User != nil {
			t.Fatalf("%s: got %d %+v", tc.name, resp.StatusCode, out)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/submit", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response %d %v", resp.StatusCode, resp.Header)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zap.NewNop()
	quiz, err := app.NewQuizService(memory.NewContentStore(sampleContent()), app.QuizOptions{})
	if err != nil {
		t.Fatalf("quiz service: %v", err)
	}
	auth, err := app.NewAuthService(memory.NewCredentialStore(), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	h := NewHandler(quiz, auth, log)
	ws := NewWSHandler(quiz, log, time.Second)
	return httptest.NewServer(NewRouter(h, ws, log, 5*time.Second))
}

// sampleContent has 12 questions in category 1, each with options
// id*100+1..id*100+4 worth 1..4 marks.
func sampleContent() domain.Content {
	var content domain.Content
	for id := int64(1); id <= 12; id++ {
		content.Questions = append(content.Questions, domain.Question{ID: id, Text: "question", CategoryID: 1})
		for marks := 1; marks <= 4; marks++ {
			content.Options = append(content.Options, domain.Option{
				ID:         id*100 + int64(marks),
				QuestionID: id,
				Text:       "option",
				Marks:      marks,
			})
		}
	}
	return content
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return buf.String()
}
