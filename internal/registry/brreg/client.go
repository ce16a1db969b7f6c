// Package brreg lists business entities from the Norwegian entity registry
// (Brønnøysundregistrene).
package brreg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/seo-opportunity-scanner/internal/metrics"
	"github.com/JakeFAU/seo-opportunity-scanner/internal/scanner"
)

// DefaultBaseURL is the public entity search endpoint.
const DefaultBaseURL = "https://data.brreg.no/enhetsregisteret/api/enheter"

// Config controls registry access.
type Config struct {
	BaseURL     string
	PageSize    int
	MaxPages    int
	PageDelay   time.Duration
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	UserAgent   string
}

// Client pages through registry search results. Page requests are strictly
// sequential and paced by a limiter shared by every scan using the client.
type Client struct {
	http   *http.Client
	cfg    Config
	retry  *RetryPolicy
	pacer  *rate.Limiter
	logger *zap.Logger
}

// New constructs a Client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pacer := rate.NewLimiter(rate.Inf, 1)
	if cfg.PageDelay > 0 {
		pacer = rate.NewLimiter(rate.Every(cfg.PageDelay), 1)
	}
	return &Client{
		http:   httpClient,
		cfg:    cfg,
		retry:  NewRetryPolicy(cfg.MaxAttempts, cfg.RetryDelay, 0),
		pacer:  pacer,
		logger: logger,
	}
}

type searchResponse struct {
	Embedded struct {
		Entities []entity `json:"enheter"`
	} `json:"_embedded"`
	Page struct {
		Size          int `json:"size"`
		TotalElements int `json:"totalElements"`
		TotalPages    int `json:"totalPages"`
		Number        int `json:"number"`
	} `json:"page"`
}

type entity struct {
	OrgNumber      string       `json:"organisasjonsnummer"`
	Name           string       `json:"navn"`
	OrgForm        *codeLabel   `json:"organisasjonsform"`
	Industry       *codeLabel   `json:"naeringskode1"`
	Address        *postAddress `json:"forretningsadresse"`
	RegisteredDate string       `json:"registreringsdatoEnhetsregisteret"`
	Employees      *int         `json:"antallAnsatte"`
	Website        string       `json:"hjemmeside"`
}

type codeLabel struct {
	Code        string `json:"kode"`
	Description string `json:"beskrivelse"`
}

type postAddress struct {
	Lines            []string `json:"adresse"`
	PostalCode       string   `json:"postnummer"`
	PostalPlace      string   `json:"poststed"`
	Municipality     string   `json:"kommune"`
	MunicipalityCode string   `json:"kommunenummer"`
}

func (e entity) target() scanner.Target {
	t := scanner.Target{
		OrgNumber:      e.OrgNumber,
		Name:           e.Name,
		RegisteredDate: e.RegisteredDate,
		Website:        strings.TrimSpace(e.Website),
	}
	if e.OrgForm != nil {
		t.OrgForm = e.OrgForm.Description
	}
	if e.Industry != nil {
		t.Industry = e.Industry.Description
		t.IndustryCode = e.Industry.Code
	}
	if e.Address != nil {
		t.Municipality = e.Address.Municipality
		t.PostalCode = e.Address.PostalCode
		t.PostalPlace = e.Address.PostalPlace
		t.Address = strings.Join(e.Address.Lines, ", ")
	}
	if e.Employees != nil && *e.Employees > 0 {
		t.Employees = *e.Employees
	}
	return t
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("registry returned %d %s", e.code, http.StatusText(e.code))
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "decode registry response: " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

// ListTargets pages through the registry until the last page, MaxPages, or
// q.MaxTargets entities. When a page fails after retries the entities read so
// far are returned with a *scanner.UpstreamAPIError.
func (c *Client) ListTargets(ctx context.Context, q scanner.Query) ([]scanner.Target, error) {
	industry := q.IndustryCode
	if industry == "" {
		industry = scanner.DefaultIndustryCode
	}
	var targets []scanner.Target
	for page := 0; page < c.cfg.MaxPages; page++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return targets, &scanner.UpstreamAPIError{Page: page, Err: err}
		}
		resp, err := c.fetchPage(ctx, industry, q.MunicipalityCode, page)
		if err != nil {
			return targets, &scanner.UpstreamAPIError{Page: page, Err: err}
		}
		for _, e := range resp.Embedded.Entities {
			targets = append(targets, e.target())
		}
		c.logger.Debug("registry page read",
			zap.Int("page", page),
			zap.Int("entities", len(resp.Embedded.Entities)),
			zap.Int("total_pages", resp.Page.TotalPages),
		)
		if len(resp.Embedded.Entities) == 0 || page >= resp.Page.TotalPages-1 {
			break
		}
		if q.MaxTargets > 0 && len(targets) >= q.MaxTargets {
			break
		}
	}
	return targets, nil
}

func (c *Client) fetchPage(ctx context.Context, industry, municipality string, page int) (searchResponse, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.doPage(ctx, industry, municipality, page)
		if err == nil {
			metrics.ObserveRegistryPage("ok")
			return resp, nil
		}
		metrics.ObserveRegistryPage("error")
		if !c.retry.ShouldRetry(err, attempt+1) {
			return searchResponse{}, err
		}
		wait := c.retry.Backoff(attempt)
		c.logger.Warn("registry page failed, retrying",
			zap.Int("page", page), zap.Int("attempt", attempt+1), zap.Duration("backoff", wait), zap.Error(err))
		if sleepErr := sleepContext(ctx, wait); sleepErr != nil {
			return searchResponse{}, errors.Join(err, sleepErr)
		}
	}
}

func (c *Client) doPage(ctx context.Context, industry, municipality string, page int) (searchResponse, error) {
	params := url.Values{}
	params.Set("naeringskode", industry)
	params.Set("size", strconv.Itoa(c.cfg.PageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("konkurs", "false")
	if municipality != "" {
		params.Set("kommunenummer", municipality)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return searchResponse{}, fmt.Errorf("build registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return searchResponse{}, fmt.Errorf("registry request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return searchResponse{}, &statusError{code: resp.StatusCode}
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return searchResponse{}, &decodeError{err: err}
	}
	return out, nil
}

// Municipalities returns the selectable major municipalities.
func (c *Client) Municipalities() []scanner.Municipality {
	out := make([]scanner.Municipality, len(municipalities))
	copy(out, municipalities)
	return out
}

var municipalities = []scanner.Municipality{
	{Code: "0301", Name: "Oslo", Region: "Oslo"},
	{Code: "4601", Name: "Bergen", Region: "Vestland"},
	{Code: "5001", Name: "Trondheim", Region: "Trøndelag"},
	{Code: "1103", Name: "Stavanger", Region: "Rogaland"},
	{Code: "3005", Name: "Drammen", Region: "Viken"},
	{Code: "1201", Name: "Bergen", Region: "Vestland"},
	{Code: "1902", Name: "Tromsø", Region: "Troms og Finnmark"},
	{Code: "1001", Name: "Kristiansand", Region: "Agder"},
	{Code: "3024", Name: "Bærum", Region: "Viken"},
	{Code: "4204", Name: "Stord", Region: "Vestland"},
}
