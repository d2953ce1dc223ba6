package http

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"metalwatch-service/internal/app"
	"metalwatch-service/internal/domain"
	"metalwatch-service/internal/infra/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pollution := app.NewPollutionService(memory.NewSampleStore(), nil, log).
		WithClock(func() time.Time { return fixed })
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(testBank()), time.Minute)
	quiz := app.NewQuizService(banks, memory.NewAttemptStore(), app.QuizOptions{BankID: "bank-1", Logger: log})

	mux := http.NewServeMux()
	NewHandler(pollution, quiz, log).Register(mux)
	mux.HandleFunc("/ws/leaderboard", NewWSHandler(quiz, log).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, quiz
}

func doRequest(t *testing.T, method, url, user, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if user != "" {
		req.Header.Set(HeaderUserID, user)
		req.Header.Set(HeaderUserName, strings.ToUpper(user))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestComputeIndices(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, http.MethodPost, server.URL+"/api/indices", "", `{"concentration":40,"permissibleLimit":10}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got struct {
		CF    float64 `json:"cf"`
		PLI   float64 `json:"pli"`
		Class string  `json:"class"`
	}
	decodeBody(t, resp, &got)
	if got.CF != 4 || got.PLI != 4 || got.Class != "CONSIDERABLE" {
		t.Fatalf("unexpected indices %+v", got)
	}
}

func TestComputeIndicesZeroLimitEncodesInfinity(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, http.MethodPost, server.URL+"/api/indices", "", `{"concentration":5,"permissibleLimit":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `"cf":"+Inf"`) {
		t.Fatalf("expected +Inf cf, got %s", raw)
	}
}

func TestRecordSampleValidation(t *testing.T) {
	server, _ := newTestServer(t)

	cases := map[string]struct {
		user string
		body string
	}{
		"missing user":          {"", `{"location":"A","metal":"Pb","concentration":1,"permissibleLimit":1}`},
		"missing concentration": {"u1", `{"location":"A","metal":"Pb","permissibleLimit":1}`},
		"non numeric":           {"u1", `{"location":"A","metal":"Pb","concentration":"lots","permissibleLimit":1}`},
		"blank location":        {"u1", `{"location":"  ","metal":"Pb","concentration":1,"permissibleLimit":1}`},
		"malformed":             {"u1", `{"location":`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := doRequest(t, http.MethodPost, server.URL+"/api/pollution", tc.user, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var payload errorPayload
			decodeBody(t, resp, &payload)
			if payload.Message == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestRecordHistoryAndLocations(t *testing.T) {
	server, _ := newTestServer(t)

	for _, body := range []string{
		`{"location":"Lake","metal":"Pb","concentration":10,"permissibleLimit":10}`,
		`{"location":"Lake","metal":"Cd","concentration":40,"permissibleLimit":10}`,
		`{"location":"River","metal":"Pb","concentration":5,"permissibleLimit":10}`,
	} {
		resp := doRequest(t, http.MethodPost, server.URL+"/api/pollution", "u1", body)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
	}
	doRequest(t, http.MethodPost, server.URL+"/api/pollution", "u2",
		`{"location":"River","metal":"Pb","concentration":20,"permissibleLimit":10}`)

	var history struct {
		Records     []domain.Sample `json:"records"`
		Predictions map[string]struct {
			Value       *float64 `json:"value"`
			Determinate bool     `json:"determinate"`
		} `json:"predictions"`
	}
	decodeBody(t, doRequest(t, http.MethodGet, server.URL+"/api/pollution/mine", "u1", ""), &history)
	if len(history.Records) != 3 {
		t.Fatalf("expected 3 own records, got %d", len(history.Records))
	}
	if history.Records[1].Metal != "cd" {
		t.Fatalf("expected metal normalized, got %q", history.Records[1].Metal)
	}
	if p := history.Predictions["pb"]; !p.Determinate || p.Value == nil || *p.Value != 0 {
		t.Fatalf("expected pb forecast 5+(5-10)=0, got %+v", p)
	}
	if p := history.Predictions["cd"]; p.Determinate || p.Value != nil {
		t.Fatalf("expected indeterminate cd forecast, got %+v", p)
	}

	var locations []struct {
		Location    string  `json:"location"`
		HazardIndex float64 `json:"hazardIndex"`
	}
	decodeBody(t, doRequest(t, http.MethodGet, server.URL+"/api/pollution/locations", "", ""), &locations)
	if len(locations) != 2 || locations[0].Location != "Lake" || locations[0].HazardIndex != 5 {
		t.Fatalf("unexpected locations %+v", locations)
	}

	var summary struct {
		Status      string `json:"status"`
		SampleCount int    `json:"sampleCount"`
		HighCount   int    `json:"highCount"`
	}
	decodeBody(t, doRequest(t, http.MethodGet, server.URL+"/api/pollution/summary", "u1", ""), &summary)
	if summary.SampleCount != 3 || summary.HighCount != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestExportCSV(t *testing.T) {
	server, _ := newTestServer(t)
	doRequest(t, http.MethodPost, server.URL+"/api/pollution", "u1",
		`{"location":"Lake","metal":"Pb","concentration":15,"permissibleLimit":10}`)

	resp := doRequest(t, http.MethodGet, server.URL+"/api/pollution/export.csv", "u1", "")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[0][0] != "Location" || rows[1][4] != "1.500" || rows[1][7] != "2024-03-01" {
		t.Fatalf("unexpected csv %v", rows)
	}
}

func TestQuizFlow(t *testing.T) {
	server, _ := newTestServer(t)

	var bank domain.QuestionBank
	decodeBody(t, doRequest(t, http.MethodGet, server.URL+"/api/quiz/questions", "", ""), &bank)
	if len(bank.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(bank.Questions))
	}
	for _, q := range bank.Questions {
		if q.CorrectOption != "" {
			t.Fatalf("answer leaked for question %s", q.ID)
		}
	}

	resp := doRequest(t, http.MethodPost, server.URL+"/api/quiz/submit", "u1", `{"answers":["Lead","Wrong"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var attempt domain.QuizAttempt
	decodeBody(t, resp, &attempt)
	if attempt.Report.Score != 1 || attempt.Report.Percentage != 50 || attempt.DisplayName != "U1" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}

	resp = doRequest(t, http.MethodPost, server.URL+"/api/quiz/submit", "u1", `{"answers":["Lead"]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on length mismatch, got %d", resp.StatusCode)
	}

	doRequest(t, http.MethodPost, server.URL+"/api/quiz/submit", "u2", `{"answers":["Lead","Mercury"]}`)

	var mine []domain.QuizAttempt
	decodeBody(t, doRequest(t, http.MethodGet, server.URL+"/api/quiz/mine", "u1", ""), &mine)
	if len(mine) != 1 {
		t.Fatalf("expected 1 attempt for u1, got %d", len(mine))
	}

	var lb domain.Leaderboard
	decodeBody(t, doRequest(t, http.MethodGet, server.URL+"/api/quiz/leaderboard?limit=1", "", ""), &lb)
	if len(lb.Entries) != 1 || lb.Entries[0].Subject != "u2" {
		t.Fatalf("unexpected leaderboard %+v", lb.Entries)
	}

	resp = doRequest(t, http.MethodGet, server.URL+"/api/quiz/leaderboard?limit=abc", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.StatusCode)
	}
}

func TestUnknownBankIsNotFound(t *testing.T) {
	log, _ := test.NewNullLogger()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(), time.Minute)
	quiz := app.NewQuizService(banks, memory.NewAttemptStore(), app.QuizOptions{BankID: "missing", Logger: log})
	pollution := app.NewPollutionService(memory.NewSampleStore(), nil, log)

	mux := http.NewServeMux()
	NewHandler(pollution, quiz, log).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quiz/questions", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func testBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID:      "bank-1",
		Version: 1,
		Questions: []domain.Question{
			{ID: "q1", Prompt: "Which metal was banned from petrol?", Options: []string{"Lead", "Zinc"}, CorrectOption: "Lead"},
			{ID: "q2", Prompt: "Minamata disease is caused by?", Options: []string{"Mercury", "Wrong"}, CorrectOption: "Mercury"},
		},
	}
}
