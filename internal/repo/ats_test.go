package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/talentops/stagetrack/internal/cache"
	"github.com/talentops/stagetrack/internal/models"
)

// roundTripFunc lets tests stub HTTP transport behaviour.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(fn roundTripFunc) *Client {
	client := NewClient(Config{
		BaseURL:          "https://ats.test/v1",
		APIKey:           "test-key",
		Timeout:          5 * time.Second,
		DisqualifiedByID: "user-123",
		Fields: FieldIDs{
			DiscordID:  "field-discord",
			Subscriber: "field-subscriber",
			StageName:  "field-stage-name",
			StageDate:  "field-stage-date",
			ActiveFlag: "field-active",
			Guarantee:  "field-guarantee",
			Zone:       "field-zone",
			Province:   "field-province",
		},
	}, nil, time.Minute, time.Minute)
	client.httpClient.Transport = fn
	return client
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read request body: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode request body %s: %v", data, err)
	}
	return payload
}

func TestSearchCandidaturesPayloadShape(t *testing.T) {
	var captured map[string]any
	var rawBody []byte

	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", req.Method)
		}
		if req.URL.Path != "/v1/candidatures/search" {
			t.Errorf("path = %s, want /v1/candidatures/search", req.URL.Path)
		}
		if got := req.Header.Get("X-API-Key"); got != "test-key" {
			t.Errorf("X-API-Key = %q, want test-key", got)
		}
		rawBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(rawBody))
		captured = decodeBody(t, req)
		return jsonResponse(http.StatusOK, `{"data":[],"meta":{"total":0,"has_more":false}}`), nil
	})

	if _, err := client.SearchCandidatures(context.Background(), nil, 2, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["page"] != float64(2) {
		t.Errorf("page = %v, want 2", captured["page"])
	}
	if captured["page_size"] != float64(50) {
		t.Errorf("page_size = %v, want 50", captured["page_size"])
	}
	// The ATS expects an explicit null search term.
	if !bytes.Contains(rawBody, []byte(`"search":null`)) {
		t.Errorf("body %s missing \"search\":null", rawBody)
	}
}

func TestSearchCandidaturesStageFilter(t *testing.T) {
	var captured map[string]any
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = decodeBody(t, req)
		return jsonResponse(http.StatusOK, `{"data":[],"meta":{}}`), nil
	})

	if _, err := client.SearchCandidatures(context.Background(), models.StageEquals("Contratado"), 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filters, ok := captured["filters"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing filters: %v", captured)
	}
	groups, ok := filters["groups"].([]any)
	if !ok || len(groups) != 1 {
		t.Fatalf("filters.groups = %v, want one group", filters["groups"])
	}
	group := groups[0].(map[string]any)
	if group["operator"] != "and" {
		t.Errorf("group operator = %v, want and", group["operator"])
	}
	conditions := group["filters"].([]any)
	if len(conditions) != 1 {
		t.Fatalf("group filters = %v, want one condition", conditions)
	}
	condition := conditions[0].(map[string]any)
	if condition["field"] != "current_stage__name" || condition["operator"] != "equals" || condition["value"] != "Contratado" {
		t.Errorf("condition = %v", condition)
	}
}

func TestSearchCandidaturesClampsPageSize(t *testing.T) {
	var captured map[string]any
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = decodeBody(t, req)
		return jsonResponse(http.StatusOK, `{"data":[],"meta":{}}`), nil
	})

	if _, err := client.SearchCandidatures(context.Background(), nil, 0, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured["page"] != float64(1) {
		t.Errorf("page = %v, want clamped to 1", captured["page"])
	}
	if captured["page_size"] != float64(100) {
		t.Errorf("page_size = %v, want clamped to 100", captured["page_size"])
	}
}

func TestFetchCandidatureIncludesHistory(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/candidatures/cand-1" {
			t.Errorf("path = %s", req.URL.Path)
		}
		if got := req.URL.Query()["includes[]"]; len(got) != 1 || got[0] != "stages_history" {
			t.Errorf("includes[] = %v, want [stages_history]", got)
		}
		return jsonResponse(http.StatusOK, `{"data":{"id":"cand-1","candidate_id":"pers-9","stages_history":[{"stage_name":"Contratado","start_at":"2025-09-15T10:00:00Z"}],"extra":"kept"}}`), nil
	})

	candidature, err := client.FetchCandidature(context.Background(), "cand-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidature.ID != "cand-1" || candidature.CandidateID != "pers-9" {
		t.Errorf("decoded candidature = %+v", candidature)
	}
	if len(candidature.StagesHistory) != 1 || candidature.StagesHistory[0].StageName != "Contratado" {
		t.Errorf("stages history = %+v", candidature.StagesHistory)
	}
	if !bytes.Contains(candidature.Raw, []byte(`"extra":"kept"`)) {
		t.Error("raw payload should preserve unmodelled fields")
	}
}

func TestFetchCandidatureNotFound(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"not found"}`), nil
	})

	_, err := client.FetchCandidature(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("error = %v, want APIError with 404", err)
	}
}

func TestCurrentStageTotalReadsMetaAndCaches(t *testing.T) {
	calls := 0
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		calls++
		payload := decodeBody(t, req)
		if payload["page_size"] != float64(1) {
			t.Errorf("page_size = %v, want 1 for count queries", payload["page_size"])
		}
		return jsonResponse(http.StatusOK, `{"data":[{"id":"x"}],"meta":{"total":137,"has_more":true}}`), nil
	})
	client.cache = cache.NewMemoryProvider()

	for i := 0; i < 3; i++ {
		total, err := client.CurrentStageTotal(context.Background(), "Contratado")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != 137 {
			t.Errorf("total = %d, want 137", total)
		}
	}
	if calls != 1 {
		t.Errorf("HTTP calls = %d, want 1 (subsequent reads served from cache)", calls)
	}
}

func TestDisqualifyCandidaturePayload(t *testing.T) {
	var captured map[string]any
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/candidatures/cand-1/stage" {
			t.Errorf("path = %s", req.URL.Path)
		}
		captured = decodeBody(t, req)
		return jsonResponse(http.StatusOK, ``), nil
	})

	if err := client.DisqualifyCandidature(context.Background(), "cand-1", "Baja Servicio"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, ok := captured["disqualified_info"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing disqualified_info: %v", captured)
	}
	if info["reason"] != "Baja Servicio" {
		t.Errorf("reason = %v", info["reason"])
	}
	if info["disqualified_by_id"] != "user-123" {
		t.Errorf("disqualified_by_id = %v", info["disqualified_by_id"])
	}
	if _, err := time.Parse("2006-01-02T15:04:05+00:00", info["disqualified_at"].(string)); err != nil {
		t.Errorf("disqualified_at %v not in expected format: %v", info["disqualified_at"], err)
	}
}

func TestDisqualifyActiveByEmailCollectsErrors(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, "/candidatures/search"):
			return jsonResponse(http.StatusOK, `{"data":[
				{"id":"ok-1","status":"active"},
				{"id":"bad-1","status":"active"},
				{"id":"skip-1","status":"disqualified"}
			]}`), nil
		case strings.HasSuffix(req.URL.Path, "/candidatures/bad-1/stage"):
			return jsonResponse(http.StatusInternalServerError, `{"message":"boom"}`), nil
		default:
			return jsonResponse(http.StatusOK, ``), nil
		}
	})

	result, err := client.DisqualifyActiveByEmail(context.Background(), "who@example.com", "Baja Servicio")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Found != 2 {
		t.Errorf("found = %d, want 2 active", result.Found)
	}
	if result.Disqualified != 1 {
		t.Errorf("disqualified = %d, want 1", result.Disqualified)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want one entry", result.Errors)
	}
}

func TestDoJSONAPIErrorSnippet(t *testing.T) {
	client := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `upstream exploded`), nil
	})

	_, err := client.SearchCandidatures(context.Background(), nil, 1, 10)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Body, "upstream exploded") {
		t.Errorf("body snippet = %q", apiErr.Body)
	}
}
