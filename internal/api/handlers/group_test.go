package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/service"
)

type MockGroupService struct {
	mock.Mock
}

func (m *MockGroupService) CreateGroup(ctx context.Context, input service.CreateGroupInput) (*domain.KnowledgeGroup, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeGroup), args.Error(1)
}

func (m *MockGroupService) GetGroup(ctx context.Context, groupID string) (*domain.KnowledgeGroup, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeGroup), args.Error(1)
}

func (m *MockGroupService) ListGroups(ctx context.Context, input service.ListGroupsInput) (*service.ListGroupsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListGroupsOutput), args.Error(1)
}

func (m *MockGroupService) AddSource(ctx context.Context, groupID string, input service.SourceInput) (domain.KnowledgeSource, error) {
	args := m.Called(ctx, groupID, input)
	return args.Get(0).(domain.KnowledgeSource), args.Error(1)
}

func newTestGroup(t *testing.T) *domain.KnowledgeGroup {
	t.Helper()
	g := domain.NewKnowledgeGroup("support-docs", "Customer support knowledge", "platform-team", time.Now().UTC())
	require.NoError(t, g.AddSource(domain.NewKnowledgeSource("faq", domain.SourceTypePrechunkedBlob, "s3://corpora/faq")))
	return g
}

func requestWithParam(method, url, key, value string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGroupHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	group := newTestGroup(t)
	mockSvc.On("CreateGroup", mock.Anything, mock.MatchedBy(func(input service.CreateGroupInput) bool {
		return input.Name == "support-docs" && input.Owner == "platform-team" && len(input.Sources) == 1
	})).Return(group, nil)

	body := `{"name":"support-docs","description":"Customer support knowledge","owner":"platform-team","sources":[{"name":"faq","type":"PRECHUNKED_BLOB","location":"s3://corpora/faq"}]}`
	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, group.GroupID, data["id"])
	assert.Equal(t, "support-docs", data["name"])
	sources := data["sources"].([]interface{})
	require.Len(t, sources, 1)
	mockSvc.AssertExpectations(t)
}

func TestGroupHandler_Create_InvalidJSON(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestGroupHandler_Create_ValidationError(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("CreateGroup", mock.Anything, mock.Anything).Return(nil, domain.NewValidationError("group owner cannot be empty or whitespace"))

	body := `{"name":"support-docs","description":"d","owner":""}`
	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "owner")
}

func TestGroupHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	group := newTestGroup(t)
	mockSvc.On("GetGroup", mock.Anything, group.GroupID).Return(group, nil)

	req := requestWithParam(http.MethodGet, "/groups/"+group.GroupID, "groupID", group.GroupID, nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestGroupHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("GetGroup", mock.Anything, "kg_missing00000").Return(nil, domain.ErrGroupNotFound)

	req := requestWithParam(http.MethodGet, "/groups/kg_missing00000", "groupID", "kg_missing00000", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupHandler_List_Success(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	group := newTestGroup(t)
	mockSvc.On("ListGroups", mock.Anything, service.ListGroupsInput{Cursor: "abc", Limit: 5}).Return(&service.ListGroupsOutput{
		Items:   []*domain.KnowledgeGroup{group},
		Cursor:  "next",
		HasMore: true,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/groups?cursor=abc&limit=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["has_more"])
	assert.Equal(t, "next", data["cursor"])
	mockSvc.AssertExpectations(t)
}

func TestGroupHandler_List_InvalidLimit(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/groups?limit=zero", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "ListGroups")
}

func TestGroupHandler_AddSource_Success(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	src := domain.NewKnowledgeSource("manuals", domain.SourceTypePrechunkedBlob, "s3://corpora/manuals")
	mockSvc.On("AddSource", mock.Anything, "kg_abcdefghijkl", service.SourceInput{
		Name:     "manuals",
		Type:     "PRECHUNKED_BLOB",
		Location: "s3://corpora/manuals",
	}).Return(src, nil)

	body := `{"name":"manuals","type":"PRECHUNKED_BLOB","location":"s3://corpora/manuals"}`
	req := requestWithParam(http.MethodPost, "/groups/kg_abcdefghijkl/sources", "groupID", "kg_abcdefghijkl", []byte(body))
	w := httptest.NewRecorder()

	handler.AddSource(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, src.SourceID, data["id"])
	mockSvc.AssertExpectations(t)
}

func TestGroupHandler_AddSource_Conflict(t *testing.T) {
	mockSvc := new(MockGroupService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("AddSource", mock.Anything, "kg_abcdefghijkl", mock.Anything).Return(domain.KnowledgeSource{}, domain.ErrSourceAlreadyExists)

	body := `{"name":"faq","type":"PRECHUNKED_BLOB","location":"s3://corpora/faq"}`
	req := requestWithParam(http.MethodPost, "/groups/kg_abcdefghijkl/sources", "groupID", "kg_abcdefghijkl", []byte(body))
	w := httptest.NewRecorder()

	handler.AddSource(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
