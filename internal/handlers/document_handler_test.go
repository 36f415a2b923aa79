package handlers_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments_CreateGetList(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/documents", documentBody())
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	doc := decodeBody(t, rr)
	assert.Equal(t, "TD-00001", doc["document_number"])
	assert.Equal(t, "filled", doc["status"])
	assert.Equal(t, "Waa la Buxiyay", doc["status_display"])
	assert.Equal(t, "#FFA500", doc["status_color"])
	assert.EqualValues(t, 1, doc["children_count"])
	assert.Equal(t, true, doc["can_be_approved"])
	assert.Nil(t, doc["created_by"])

	rr = s.do(t, http.MethodGet, "/api/documents/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Axmed Cali Xasan", decodeBody(t, rr)["full_name"])

	rr = s.do(t, http.MethodGet, "/api/documents?search=axmed&region=Banadir", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody(t, rr)
	assert.EqualValues(t, 1, list["count"])
	assert.Len(t, list["results"], 1)

	rr = s.do(t, http.MethodGet, "/api/documents?region=Bari", nil)
	assert.EqualValues(t, 0, decodeBody(t, rr)["count"])

	rr = s.do(t, http.MethodGet, "/api/documents/999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/documents/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/documents?date_from=10-05-2025", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDocuments_CreateValidation(t *testing.T) {
	s := newTestServer(t)

	body := documentBody()
	body["status"] = "printed"
	rr := s.do(t, http.MethodPost, "/api/documents", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeBody(t, rr)
	assert.Equal(t, "validation failed", resp["error"])
	fields := resp["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "status", fields[0].(map[string]any)["field"])

	body = documentBody()
	body["phone_number"] = "0123"
	rr = s.do(t, http.MethodPost, "/api/documents", body)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "phone_number")

	body = documentBody()
	body["birth_date"] = "01/04/1990"
	rr = s.do(t, http.MethodPost, "/api/documents", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestDocuments_LifecycleAndHistory(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/documents", documentBody()).Code)

	rr := s.do(t, http.MethodPost, "/api/documents/1/print", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["error"], "cannot transition from filled to printed")

	rr = s.do(t, http.MethodPost, "/api/documents/1/approve", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody(t, rr)
	assert.Equal(t, "Document approved successfully", resp["message"])
	assert.Equal(t, "approved", resp["document"].(map[string]any)["status"])

	// изменение возможно только в статусе filled
	rr = s.do(t, http.MethodPut, "/api/documents/1", documentBody())
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/documents/1/print", nil).Code)

	rr = s.do(t, http.MethodGet, "/api/documents/1/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	events := decodeBody(t, rr)["events"].([]any)
	require.Len(t, events, 3)
	assert.Equal(t, "printed", events[2].(map[string]any)["new_status"])

	rr = s.do(t, http.MethodDelete, "/api/documents/1", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/documents/1/history", nil)
	assert.Len(t, decodeBody(t, rr)["events"], 3)
}

func TestDocuments_UpdateKeepsChildrenWhenOmitted(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/documents", documentBody()).Code)

	body := documentBody()
	delete(body, "children")
	body["full_name"] = "Axmed Cali Warsame"
	rr := s.do(t, http.MethodPut, "/api/documents/1", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	doc := decodeBody(t, rr)
	assert.Equal(t, "Axmed Cali Warsame", doc["full_name"])
	assert.EqualValues(t, 1, doc["children_count"])

	body["children"] = []any{}
	rr = s.do(t, http.MethodPut, "/api/documents/1", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, decodeBody(t, rr)["children_count"])
}

func TestDocuments_Bulk(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/documents", documentBody()).Code)
	}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/documents/2/approve", nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/documents/2/print", nil).Code)

	rr := s.do(t, http.MethodPost, "/api/documents/bulk", map[string]any{"document_ids": []int{1, 2, 3, 42}, "operation": "approve"})
	require.Equal(t, http.StatusOK, rr.Code)
	results := decodeBody(t, rr)["results"].([]any)
	require.Len(t, results, 4)
	status := func(i int) string { return results[i].(map[string]any)["status"].(string) }
	assert.Equal(t, "success", status(0))
	assert.Equal(t, "error", status(1))
	assert.Equal(t, "success", status(2))
	assert.Equal(t, "error", status(3))
	assert.Equal(t, "not found", results[3].(map[string]any)["message"])

	rr = s.do(t, http.MethodPost, "/api/documents/bulk", map[string]any{"document_ids": []int{1}, "operation": "archive"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDocuments_Export(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/documents", documentBody()).Code)
	other := documentBody()
	other["region"] = "Bari"
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/documents", other).Code)

	rr := s.do(t, http.MethodPost, "/api/documents/export", map[string]any{"format": "csv", "filters": map[string]any{"region": "Bari"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "travel_documents_")
	records, err := csv.NewReader(strings.NewReader(rr.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Document Number", records[0][0])
	assert.Equal(t, "TD-00002", records[1][0])

	rr = s.do(t, http.MethodPost, "/api/documents/export", map[string]any{"format": "json", "document_ids": []int{1}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody(t, rr)["documents"], 1)

	rr = s.do(t, http.MethodPost, "/api/documents/export", map[string]any{"format": "pdf"})
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestDocuments_ValidateAndStatistics(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/documents/validate", map[string]any{"full_name": "A1"})
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody(t, rr)
	assert.Equal(t, false, resp["valid"])
	assert.NotEmpty(t, resp["errors"])

	body := documentBody()
	body["sponsor_id"] = "SP12345"
	rr = s.do(t, http.MethodPost, "/api/documents/validate", body)
	assert.Equal(t, true, decodeBody(t, rr)["valid"])

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/documents", documentBody()).Code)

	rr = s.do(t, http.MethodGet, "/api/documents/statistics?days=7", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeBody(t, rr)
	assert.EqualValues(t, 1, st["total"])
	assert.EqualValues(t, 7, st["recent_days"])

	rr = s.do(t, http.MethodGet, "/api/documents/by-region", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"region":"Banadir"`)

	rr = s.do(t, http.MethodGet, "/api/statistics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	ov := decodeBody(t, rr)
	assert.EqualValues(t, 1, ov["total_documents"])
	assert.EqualValues(t, 1, ov["filled_documents"])
}

func TestDocuments_Photos(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/documents", documentBody()).Code)

	rr := s.do(t, http.MethodGet, "/api/documents/1/photo", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.upload(t, "/api/documents/1/photo", pngBytes(t, 64, 48))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, decodeBody(t, rr)["photo"], "travel_documents/photos/")

	rr = s.do(t, http.MethodGet, "/api/documents/1/photo", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.NotZero(t, rr.Body.Len())

	rr = s.upload(t, "/api/documents/1/photo", []byte("plain text"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/documents/1/children", map[string]any{"name": "Cabdi"})
	require.Equal(t, http.StatusCreated, rr.Code)
	childID := int(decodeBody(t, rr)["id"].(float64))

	rr = s.upload(t, "/api/documents/1/children/"+itoa(childID)+"/photo", pngBytes(t, 10, 10))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["photo"], "travel_documents/children/")

	rr = s.do(t, http.MethodDelete, "/api/documents/1/children/"+itoa(childID), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = s.do(t, http.MethodDelete, "/api/documents/1/children/"+itoa(childID), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDocuments_BearerTokenAttributesCreator(t *testing.T) {
	s := newTestServer(t)
	u, _, err := s.users.EnsureUser(context.Background(), "clerk")
	require.NoError(t, err)
	token, err := s.users.IssueToken(u.ID)
	require.NoError(t, err)

	rr := s.do(t, http.MethodPost, "/api/documents", documentBody(), "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.EqualValues(t, u.ID, decodeBody(t, rr)["created_by"])

	rr = s.do(t, http.MethodPost, "/api/auth/cookie", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Set-Cookie"), "auth_token=")

	rr = s.do(t, http.MethodPost, "/api/auth/cookie", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_Login(t *testing.T) {
	s := newTestServer(t)
	u, _, err := s.users.SetPassword(context.Background(), "clerk", "p4ss")
	require.NoError(t, err)

	rr := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "clerk", "password": "p4ss"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Set-Cookie"), "auth_token=")
	body := decodeBody(t, rr)
	assert.EqualValues(t, u.ID, body["user_id"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	rr = s.do(t, http.MethodPost, "/api/documents", documentBody(), "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.EqualValues(t, u.ID, decodeBody(t, rr)["created_by"])

	rr = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "clerk", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, rr.Header().Get("Set-Cookie"))

	rr = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "ghost", "password": "p4ss"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "immigration_http_requests_total")
}
