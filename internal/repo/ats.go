package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/talentops/stagetrack/internal/cache"
	"github.com/talentops/stagetrack/internal/models"
)

// maxPageSize is the largest page the ATS search endpoints accept.
const maxPageSize = 100

// ErrNotFound signals that the requested resource does not exist in the ATS.
var ErrNotFound = errors.New("resource not found")

// APIError captures a non-2xx response from the ATS.
type APIError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ats %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// FieldIDs holds the candidate custom-field reference IDs for the target ATS
// instance.
type FieldIDs struct {
	DiscordID  string
	Subscriber string
	StageName  string
	StageDate  string
	ActiveFlag string
	Guarantee  string
	Zone       string
	Province   string
}

// Config collects the settings needed to construct a Client.
type Config struct {
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	Fields           FieldIDs
	DisqualifiedByID string
}

// Client wraps the recruitment ATS HTTP API.
type Client struct {
	baseURL          string
	apiKey           string
	fields           FieldIDs
	disqualifiedByID string
	httpClient       *http.Client

	cache        cache.Provider
	countsTTL    time.Duration
	fieldDefsTTL time.Duration
}

// NewClient constructs a client targeting the configured ATS instance.
func NewClient(cfg Config, cacheProvider cache.Provider, countsTTL, fieldDefsTTL time.Duration) *Client {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:           cfg.APIKey,
		fields:           cfg.Fields,
		disqualifiedByID: cfg.DisqualifiedByID,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:        cacheProvider,
		countsTTL:    countsTTL,
		fieldDefsTTL: fieldDefsTTL,
	}
}

// SearchCandidatures runs one page of the filtered candidature search.
func (c *Client) SearchCandidatures(ctx context.Context, conditions []models.FilterCondition, page, pageSize int) (models.SearchPage, error) {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}

	payload := models.SearchRequest{
		Filters:  models.AndGroup(conditions),
		Page:     page,
		PageSize: pageSize,
	}

	var result models.SearchPage
	if err := c.doJSON(ctx, http.MethodPost, "candidatures/search", nil, payload, &result); err != nil {
		return models.SearchPage{}, fmt.Errorf("search candidatures: %w", err)
	}
	return result, nil
}

// FetchCandidature retrieves one candidature with its stage history included.
func (c *Client) FetchCandidature(ctx context.Context, id string) (models.Candidature, error) {
	query := url.Values{}
	query.Add("includes[]", "stages_history")

	var response struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "candidatures/"+id, query, nil, &response); err != nil {
		return models.Candidature{}, fmt.Errorf("fetch candidature %s: %w", id, err)
	}

	var candidature models.Candidature
	if err := json.Unmarshal(response.Data, &candidature); err != nil {
		return models.Candidature{}, fmt.Errorf("decode candidature %s: %w", id, err)
	}
	candidature.Raw = response.Data
	return candidature, nil
}

// CurrentStageTotal returns the number of candidatures currently in the given
// stage using only the search metadata. The total is cached briefly since it
// backs quick reporting questions.
func (c *Client) CurrentStageTotal(ctx context.Context, stageName string) (int, error) {
	cacheKey := "stagetrack:count:" + stageName
	if data, err := c.cache.Get(ctx, cacheKey); err == nil {
		var total int
		if json.Unmarshal(data, &total) == nil {
			return total, nil
		}
	}

	result, err := c.SearchCandidatures(ctx, models.StageEquals(stageName), 1, 1)
	if err != nil {
		return 0, err
	}

	if data, err := json.Marshal(result.Meta.Total); err == nil {
		_ = c.cache.Set(ctx, cacheKey, data, c.countsTTL)
	}
	return result.Meta.Total, nil
}

// FindActiveCandidaturesByEmail lists a candidate's active candidatures.
func (c *Client) FindActiveCandidaturesByEmail(ctx context.Context, email string) ([]models.CandidatureSummary, error) {
	payload := struct {
		Search string `json:"search"`
	}{Search: email}

	var response struct {
		Data []models.CandidatureSummary `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "candidatures/search", nil, payload, &response); err != nil {
		return nil, fmt.Errorf("search candidatures for %s: %w", email, err)
	}

	active := make([]models.CandidatureSummary, 0, len(response.Data))
	for _, candidature := range response.Data {
		if candidature.Status == models.StatusActive {
			active = append(active, candidature)
		}
	}
	return active, nil
}

// DisqualifyCandidature disqualifies one candidature with the given reason.
func (c *Client) DisqualifyCandidature(ctx context.Context, candidatureID, reason string) error {
	payload := map[string]any{
		"disqualified_info": map[string]any{
			"disqualified_at":    time.Now().UTC().Format("2006-01-02T15:04:05+00:00"),
			"disqualified_by_id": c.disqualifiedByID,
			"reason":             reason,
		},
	}
	if err := c.doJSON(ctx, http.MethodPost, "candidatures/"+candidatureID+"/stage", nil, payload, nil); err != nil {
		return fmt.Errorf("disqualify candidature %s: %w", candidatureID, err)
	}
	return nil
}

// DisqualifyActiveByEmail disqualifies every active candidature of the
// candidate with the given email. Failures on individual candidatures are
// collected rather than aborting the run.
func (c *Client) DisqualifyActiveByEmail(ctx context.Context, email, reason string) (models.DisqualifyResult, error) {
	result := models.DisqualifyResult{Email: email, Errors: []string{}}

	active, err := c.FindActiveCandidaturesByEmail(ctx, email)
	if err != nil {
		return result, err
	}
	result.Found = len(active)

	for _, candidature := range active {
		if candidature.ID == "" {
			result.Errors = append(result.Errors, "candidature missing ID")
			continue
		}
		if err := c.DisqualifyCandidature(ctx, candidature.ID, reason); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Disqualified++
	}
	return result, nil
}

// doJSON issues one request against the ATS and decodes the JSON response
// into out when provided.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	if c.baseURL == "" {
		return errors.New("ats base URL not configured")
	}

	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	// Some write endpoints reply with an empty body on success.
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
