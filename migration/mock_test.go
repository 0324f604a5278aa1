package migration

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/config"
	"github.com/ledgerlift/erp-migrator/types"
)

type writerCall struct {
	Method  string
	DocType types.TargetDocType
	Name    string
	Payload types.Payload
}

// mockTargetWriter keeps created documents in memory and answers Get and
// Search from them.
type mockTargetWriter struct {
	Docs       map[types.TargetDocType][]types.Payload
	CreateErrs map[types.TargetDocType]error
	GetErr     error
	SearchErr  error
	LinkErr    error
	OnCreate   func(docType types.TargetDocType, created types.Payload) types.Payload
	Calls      []writerCall
	Called     bool
	seq        int
}

func newMockTargetWriter() *mockTargetWriter {
	return &mockTargetWriter{
		Docs:       map[types.TargetDocType][]types.Payload{},
		CreateErrs: map[types.TargetDocType]error{},
	}
}

func (m *mockTargetWriter) record(method string, docType types.TargetDocType, name string, payload types.Payload) {
	m.Called = true
	m.Calls = append(m.Calls, writerCall{Method: method, DocType: docType, Name: name, Payload: payload})
}

func (m *mockTargetWriter) calls(method string, docType types.TargetDocType) []writerCall {
	var calls []writerCall
	for _, call := range m.Calls {
		if call.Method == method && call.DocType == docType {
			calls = append(calls, call)
		}
	}
	return calls
}

func (m *mockTargetWriter) find(docType types.TargetDocType, name string) (int, bool) {
	for index, doc := range m.Docs[docType] {
		if doc.Name() == name {
			return index, true
		}
	}
	return 0, false
}

func notFound(docType types.TargetDocType, name string) error {
	return &client.APIError{StatusCode: http.StatusNotFound, Method: http.MethodGet, URL: fmt.Sprintf("/api/resource/%s/%s", docType, name)}
}

func (m *mockTargetWriter) GetAll(ctx context.Context, docType types.TargetDocType) ([]types.Payload, error) {
	m.record("GetAll", docType, "", nil)
	return m.Docs[docType], nil
}

func (m *mockTargetWriter) Get(ctx context.Context, docType types.TargetDocType, name string) (types.Payload, error) {
	m.record("Get", docType, name, nil)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	index, ok := m.find(docType, name)
	if !ok {
		return nil, notFound(docType, name)
	}
	return m.Docs[docType][index], nil
}

func (m *mockTargetWriter) Create(ctx context.Context, docType types.TargetDocType, payload types.Payload) (types.Payload, error) {
	m.record("Create", docType, payload.Name(), payload)
	if err := m.CreateErrs[docType]; err != nil {
		return nil, err
	}

	m.seq++
	created := payload.Clone()
	if created.Name() == "" {
		if bankName := created.String("bank_name"); bankName != "" {
			created["name"] = bankName
		} else {
			created["name"] = fmt.Sprintf("%s-%04d", strings.ReplaceAll(string(docType), " ", ""), m.seq)
		}
	}
	if m.OnCreate != nil {
		created = m.OnCreate(docType, created)
	}
	m.Docs[docType] = append(m.Docs[docType], created)
	return created, nil
}

func (m *mockTargetWriter) Update(ctx context.Context, docType types.TargetDocType, name string, payload types.Payload) (types.Payload, error) {
	m.record("Update", docType, name, payload)
	index, ok := m.find(docType, name)
	if !ok {
		return nil, notFound(docType, name)
	}
	updated := m.Docs[docType][index].Clone()
	for key, value := range payload {
		updated[key] = value
	}
	m.Docs[docType][index] = updated
	return updated, nil
}

func (m *mockTargetWriter) Delete(ctx context.Context, docType types.TargetDocType, name string) error {
	m.record("Delete", docType, name, nil)
	return nil
}

func (m *mockTargetWriter) Search(ctx context.Context, docType types.TargetDocType, filters []types.Filter) ([]types.Payload, error) {
	m.record("Search", docType, "", nil)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	var matches []types.Payload
	for _, doc := range m.Docs[docType] {
		matched := true
		for _, filter := range filters {
			if doc.String(filter.Field) != fmt.Sprint(filter.Value) {
				matched = false
			}
		}
		if matched {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}

func (m *mockTargetWriter) CreateLink(ctx context.Context, parentType types.TargetDocType, parentName string, childType types.TargetDocType, childName string) (types.Payload, error) {
	m.record("CreateLink", childType, childName, types.Payload{"link_doctype": string(parentType), "link_name": parentName})
	if m.LinkErr != nil {
		return nil, m.LinkErr
	}
	return types.Payload{"name": childName}, nil
}

func (m *mockTargetWriter) UploadFile(ctx context.Context, docType types.TargetDocType, name string, filePath string) (types.Payload, error) {
	m.record("UploadFile", docType, name, nil)
	return types.Payload{"file_url": filePath}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func newTestMigrations(t *testing.T, writer client.ITargetWriter) *Migrations {
	t.Helper()
	return NewMigrations(writer, testConfig(t), logrus.New())
}
