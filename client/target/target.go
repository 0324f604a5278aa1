// Package target writes entities into the target ERP through its
// /api/resource REST interface.
package target

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/types"
)

type TargetClient struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

func NewTargetClient(baseURL string, apiKey string, apiSecret string, logger *logrus.Logger) *TargetClient {
	return &TargetClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		APISecret:  apiSecret,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Logger:     logger,
	}
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type messageEnvelope[T any] struct {
	Message T `json:"message"`
}

func (targetClient *TargetClient) GetAll(ctx context.Context, docType types.TargetDocType) ([]types.Payload, error) {
	params := url.Values{}
	params.Set("fields", `["*"]`)
	params.Set("limit_page_length", "0")

	var envelope dataEnvelope[[]types.Payload]
	if err := targetClient.request(ctx, http.MethodGet, targetClient.resourceURL(docType), params, nil, &envelope); err != nil {
		return nil, fmt.Errorf("get all %s: %w", docType, err)
	}
	return envelope.Data, nil
}

func (targetClient *TargetClient) Get(ctx context.Context, docType types.TargetDocType, name string) (types.Payload, error) {
	var envelope dataEnvelope[types.Payload]
	if err := targetClient.request(ctx, http.MethodGet, targetClient.resourceURL(docType, name), nil, nil, &envelope); err != nil {
		return nil, fmt.Errorf("get %s %q: %w", docType, name, err)
	}
	return envelope.Data, nil
}

func (targetClient *TargetClient) Create(ctx context.Context, docType types.TargetDocType, payload types.Payload) (types.Payload, error) {
	var envelope dataEnvelope[types.Payload]
	if err := targetClient.request(ctx, http.MethodPost, targetClient.resourceURL(docType), nil, payload, &envelope); err != nil {
		return nil, fmt.Errorf("create %s: %w", docType, err)
	}
	return envelope.Data, nil
}

func (targetClient *TargetClient) Update(ctx context.Context, docType types.TargetDocType, name string, payload types.Payload) (types.Payload, error) {
	var envelope dataEnvelope[types.Payload]
	if err := targetClient.request(ctx, http.MethodPut, targetClient.resourceURL(docType, name), nil, payload, &envelope); err != nil {
		return nil, fmt.Errorf("update %s %q: %w", docType, name, err)
	}
	return envelope.Data, nil
}

func (targetClient *TargetClient) Delete(ctx context.Context, docType types.TargetDocType, name string) error {
	if err := targetClient.request(ctx, http.MethodDelete, targetClient.resourceURL(docType, name), nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s %q: %w", docType, name, err)
	}
	return nil
}

func (targetClient *TargetClient) Search(ctx context.Context, docType types.TargetDocType, filters []types.Filter) ([]types.Payload, error) {
	conditions := make([][]any, 0, len(filters))
	for _, filter := range filters {
		if !filter.Operator.IsValidFilterOperator() {
			return nil, fmt.Errorf("search %s: unsupported filter operator %q", docType, filter.Operator)
		}
		conditions = append(conditions, []any{filter.Field, string(filter.Operator), filter.Value})
	}
	encodedFilters, err := json.Marshal(conditions)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}

	params := url.Values{}
	params.Set("filters", string(encodedFilters))
	params.Set("fields", `["*"]`)
	params.Set("limit_page_length", "0")

	var envelope dataEnvelope[[]types.Payload]
	if err := targetClient.request(ctx, http.MethodGet, targetClient.resourceURL(docType), params, nil, &envelope); err != nil {
		return nil, fmt.Errorf("search %s: %w", docType, err)
	}
	return envelope.Data, nil
}

// CreateLink attaches the child entity to the parent through the child's
// dynamic link table.
func (targetClient *TargetClient) CreateLink(ctx context.Context, parentType types.TargetDocType, parentName string, childType types.TargetDocType, childName string) (types.Payload, error) {
	payload := types.Payload{
		"links": []map[string]any{{
			"link_doctype": string(parentType),
			"link_name":    parentName,
		}},
	}
	linked, err := targetClient.Update(ctx, childType, childName, payload)
	if err != nil {
		return nil, fmt.Errorf("link %s %q to %s %q: %w", childType, childName, parentType, parentName, err)
	}
	return linked, nil
}

func (targetClient *TargetClient) UploadFile(ctx context.Context, docType types.TargetDocType, name string, filePath string) (types.Payload, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	for field, value := range map[string]string{"doctype": string(docType), "docname": name, "is_private": "1"} {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	uploadURL := targetClient.BaseURL + "/api/method/upload_file"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var envelope messageEnvelope[types.Payload]
	if err := targetClient.do(req, &envelope); err != nil {
		return nil, fmt.Errorf("upload %s to %s %q: %w", filepath.Base(filePath), docType, name, err)
	}
	targetClient.Logger.Debugf("Uploaded file %s to %s %s", filepath.Base(filePath), docType, name)
	return envelope.Message, nil
}

func (targetClient *TargetClient) resourceURL(docType types.TargetDocType, name ...string) string {
	resourceURL := targetClient.BaseURL + "/api/resource/" + url.PathEscape(string(docType))
	for _, segment := range name {
		resourceURL += "/" + url.PathEscape(segment)
	}
	return resourceURL
}

func (targetClient *TargetClient) request(ctx context.Context, method string, requestURL string, params url.Values, payload types.Payload, out any) error {
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return targetClient.do(req, out)
}

func (targetClient *TargetClient) do(req *http.Request, out any) error {
	req.SetBasicAuth(targetClient.APIKey, targetClient.APISecret)
	req.Header.Set("Accept", "application/json")

	method := req.Method
	requestURL := req.URL.String()
	targetClient.Logger.Tracef("%s %s", method, requestURL)

	resp, err := targetClient.HTTPClient.Do(req)
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
