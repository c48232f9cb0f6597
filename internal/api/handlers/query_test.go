package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veldt-labs/corpora/internal/domain"
	"github.com/veldt-labs/corpora/internal/service"
)

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Query(ctx context.Context, input service.QueryInput) ([]service.QueryResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.QueryResult), args.Error(1)
}

func TestQueryHandler_Query_Success(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	results := []service.QueryResult{
		{
			Content:        "To reset your password...",
			Score:          0.8,
			SourceID:       "ks_abcdefghijkl",
			SourceName:     "faq",
			SourceLocation: "s3://corpora/faq",
			ChunkFile:      "faq/auth.jsonl",
			ChunkIndex:     2,
		},
	}
	mockSvc.On("Query", mock.Anything, service.QueryInput{
		GroupID:    "kg_abcdefghijkl",
		Query:      "reset password",
		MaxResults: 5,
	}).Return(results, nil)

	body := `{"query":"reset password","max_results":5}`
	req := requestWithParam(http.MethodPost, "/groups/kg_abcdefghijkl/query", "groupID", "kg_abcdefghijkl", []byte(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["results"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "To reset your password...", first["content"])
	assert.Equal(t, "faq", first["source_name"])
	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_Query_DefaultsMaxResults(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Query", mock.Anything, service.QueryInput{
		GroupID:    "kg_abcdefghijkl",
		Query:      "anything",
		MaxResults: 10,
	}).Return([]service.QueryResult{}, nil)

	body := `{"query":"anything"}`
	req := requestWithParam(http.MethodPost, "/groups/kg_abcdefghijkl/query", "groupID", "kg_abcdefghijkl", []byte(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestQueryHandler_Query_NoActiveSnapshot(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	mockSvc.On("Query", mock.Anything, mock.Anything).Return(nil, domain.ErrNoActiveSnapshot)

	body := `{"query":"anything"}`
	req := requestWithParam(http.MethodPost, "/groups/kg_abcdefghijkl/query", "groupID", "kg_abcdefghijkl", []byte(body))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "no active snapshot")
}

func TestQueryHandler_Query_InvalidJSON(t *testing.T) {
	mockSvc := new(MockQueryService)
	handler := NewQueryHandler(mockSvc)

	req := requestWithParam(http.MethodPost, "/groups/kg_abcdefghijkl/query", "groupID", "kg_abcdefghijkl", []byte(`{broken`))
	w := httptest.NewRecorder()

	handler.Query(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Query")
}
