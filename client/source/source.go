// Package source reads entity collections from the source system's REST API.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/types"
)

const DefaultPageSize = 100

type SourceClient struct {
	BaseURL    string
	Token      string
	PageSize   int
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

func NewSourceClient(baseURL string, token string, pageSize int, logger *logrus.Logger) *SourceClient {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SourceClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/") + "/",
		Token:      token,
		PageSize:   pageSize,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logger,
	}
}

type pageQuery struct {
	Page           int  `url:"page"`
	PageSize       int  `url:"pageSize"`
	SerializeNulls bool `url:"serializeNulls,omitempty"`
}

type resultEnvelope[T any] struct {
	Result T `json:"result"`
}

var filterSuffixes = map[types.FilterOperator]string{
	types.FilterOperatorEquals:         "eq",
	types.FilterOperatorNotEquals:      "ne",
	types.FilterOperatorLess:           "lt",
	types.FilterOperatorGreater:        "gt",
	types.FilterOperatorLessOrEqual:    "le",
	types.FilterOperatorGreaterOrEqual: "ge",
}

func (sourceClient *SourceClient) GetCount(ctx context.Context, docType types.SourceDocType) (int, error) {
	var envelope resultEnvelope[*int]
	if err := sourceClient.request(ctx, http.MethodGet, sourceClient.url(docType, "count"), nil, &envelope); err != nil {
		return 0, fmt.Errorf("count %s: %w", docType, err)
	}
	if envelope.Result == nil {
		return 0, fmt.Errorf("count %s: response has no result", docType)
	}
	return *envelope.Result, nil
}

func (sourceClient *SourceClient) GetAll(ctx context.Context, docType types.SourceDocType) ([]types.Record, error) {
	count, err := sourceClient.GetCount(ctx, docType)
	if err != nil {
		return nil, err
	}
	pages := (count + sourceClient.PageSize - 1) / sourceClient.PageSize
	sourceClient.Logger.Debugf("Fetching %d %s records in %d pages", count, docType, pages)

	records := make([]types.Record, 0, count)
	for page := 1; page <= pages; page++ {
		params, err := query.Values(pageQuery{Page: page, PageSize: sourceClient.PageSize, SerializeNulls: true})
		if err != nil {
			return nil, fmt.Errorf("encode page query: %w", err)
		}

		var envelope resultEnvelope[[]types.Record]
		if err := sourceClient.request(ctx, http.MethodGet, sourceClient.url(docType), params, &envelope); err != nil {
			return nil, fmt.Errorf("get %s page %d: %w", docType, page, err)
		}
		records = append(records, envelope.Result...)
	}
	return records, nil
}

func (sourceClient *SourceClient) Get(ctx context.Context, docType types.SourceDocType, id string) (types.Record, error) {
	var record types.Record
	if err := sourceClient.request(ctx, http.MethodGet, sourceClient.url(docType, "id", id), nil, &record); err != nil {
		return nil, fmt.Errorf("get %s %s: %w", docType, id, err)
	}
	return record, nil
}

func (sourceClient *SourceClient) Search(ctx context.Context, docType types.SourceDocType, filters []types.Filter) ([]types.Record, error) {
	params := url.Values{}
	for _, filter := range filters {
		suffix, ok := filterSuffixes[filter.Operator]
		if !ok {
			return nil, fmt.Errorf("search %s: unsupported filter operator %q", docType, filter.Operator)
		}
		params.Add(fmt.Sprintf("%s-%s", filter.Field, suffix), fmt.Sprint(filter.Value))
	}

	var envelope resultEnvelope[[]types.Record]
	if err := sourceClient.request(ctx, http.MethodGet, sourceClient.url(docType), params, &envelope); err != nil {
		return nil, fmt.Errorf("search %s: %w", docType, err)
	}
	return envelope.Result, nil
}

func (sourceClient *SourceClient) url(docType types.SourceDocType, segments ...string) string {
	parts := []string{url.PathEscape(string(docType))}
	for _, segment := range segments {
		parts = append(parts, url.PathEscape(segment))
	}
	return sourceClient.BaseURL + strings.Join(parts, "/")
}

func (sourceClient *SourceClient) request(ctx context.Context, method string, requestURL string, params url.Values, out any) error {
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("AuthenticationToken", sourceClient.Token)

	sourceClient.Logger.Tracef("%s %s", method, requestURL)
	resp, err := sourceClient.HTTPClient.Do(req)
	if err != nil {
		return &client.APIError{Method: method, URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &client.APIError{StatusCode: resp.StatusCode, Method: method, URL: requestURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &client.APIError{StatusCode: resp.StatusCode, Method: method, URL: requestURL, ResponseBody: string(responseBody)}
	}

	if out == nil || len(responseBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("parse response from %s: %w", requestURL, err)
	}
	return nil
}
