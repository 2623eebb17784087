package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mindora_hub/internal/config"
	"mindora_hub/internal/model"
	"mindora_hub/pkg/tracing"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const maxPayloadBytes = 8 << 20

// HTTPClient allows injecting a fake transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ContentFetcher retrieves remote content. Every error it returns is a *FetchError.
// It neither retries nor caches.
type ContentFetcher interface {
	FetchModules(ctx context.Context) (model.ModuleCollection, error)
	FetchAchievements(ctx context.Context) ([]model.Achievement, error)
	FetchUserAchievements(ctx context.Context, userID string) (model.EarnedSet, error)
}

type HTTPContentFetcher struct {
	config config.ContentConfig
	client HTTPClient
}

func NewHTTPContentFetcher(cfg config.ContentConfig, client HTTPClient) *HTTPContentFetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPContentFetcher{config: cfg, client: client}
}

type modulesEnvelope struct {
	Success bool `json:"success"`
	Data    *struct {
		Modules *[]model.Module `json:"modules"`
	} `json:"data"`
}

type userAchievementRecord struct {
	Achievement achievementRef `json:"achievement"`
}

// achievementRef accepts either a bare id or a populated achievement document.
type achievementRef string

func (r *achievementRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var doc struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return err
		}
		*r = achievementRef(doc.ID)
		return nil
	}
	var id string
	if err := json.Unmarshal(b, &id); err != nil {
		return fmt.Errorf("achievement reference: %w", err)
	}
	*r = achievementRef(id)
	return nil
}

func (f *HTTPContentFetcher) FetchModules(ctx context.Context) (model.ModuleCollection, error) {
	var env modulesEnvelope
	headers := map[string]string{"Cache-Control": "no-cache"}
	if err := f.getJSON(ctx, ResourceModules, f.config.ModulesURL(), headers, &env); err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, payloadError(ResourceModules, errors.New("success flag is false"))
	}
	if env.Data == nil || env.Data.Modules == nil {
		return nil, payloadError(ResourceModules, errors.New("missing data.modules"))
	}
	return model.ModuleCollection(*env.Data.Modules), nil
}

func (f *HTTPContentFetcher) FetchAchievements(ctx context.Context) ([]model.Achievement, error) {
	var list *[]model.Achievement
	if err := f.getJSON(ctx, ResourceAchievements, f.config.AchievementsURL(), f.authHeaders(), &list); err != nil {
		return nil, err
	}
	if list == nil {
		return nil, payloadError(ResourceAchievements, errors.New("expected an array"))
	}
	return *list, nil
}

func (f *HTTPContentFetcher) FetchUserAchievements(ctx context.Context, userID string) (model.EarnedSet, error) {
	var records *[]userAchievementRecord
	url := f.config.UserAchievementsURL(userID)
	if err := f.getJSON(ctx, ResourceUserAchievements, url, f.authHeaders(), &records); err != nil {
		return nil, err
	}
	if records == nil {
		return nil, payloadError(ResourceUserAchievements, errors.New("expected an array"))
	}

	ids := make([]string, 0, len(*records))
	for _, r := range *records {
		ids = append(ids, string(r.Achievement))
	}
	return model.NewEarnedSet(ids...), nil
}

func (f *HTTPContentFetcher) authHeaders() map[string]string {
	if f.config.AuthToken == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + f.config.AuthToken}
}

func (f *HTTPContentFetcher) getJSON(ctx context.Context, resource, url string, headers map[string]string, out any) (err error) {
	ctx, span := tracing.Tracer.Start(ctx, "content.fetch")
	span.SetAttributes(attribute.String("content.resource", resource), attribute.String("http.url", url))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return payloadError(resource, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return networkError(resource, 0, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		// 5xx and 429 count as transport failures.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return networkError(resource, resp.StatusCode, nil)
		}
		return &FetchError{Resource: resource, Kind: ErrPayload, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return networkError(resource, resp.StatusCode, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return payloadError(resource, err)
	}
	return nil
}
