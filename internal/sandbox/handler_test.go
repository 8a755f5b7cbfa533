package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/domain/auxiliary"
	"github.com/ehr/auxcare/internal/domain/care"
	"github.com/ehr/auxcare/internal/domain/patient"
	"github.com/ehr/auxcare/internal/domain/room"
	"github.com/ehr/auxcare/pkg/pagination"
)

func newTestServer(t *testing.T) (*echo.Echo, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	cfg := SeedConfig{Auxiliaries: 1, Patients: 6, Rooms: 4, Floors: 1, Occupied: 2, Seed: 1}
	if _, err := NewSeeder(cfg).Seed(context.Background(), store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewServer(store, Options{}, zerolog.Nop()), store
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/v1/auth/login", "", `{"id":42,"password":"auxcare"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp auxiliary.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if resp.Auxiliary.ID != 42 || resp.Token == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}
	return resp.Token
}

func TestLogin_WrongPassword(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/v1/auth/login", "", `{"id":42,"password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	rec = do(e, http.MethodPost, "/api/v1/auth/login", "", `{"id":7,"password":"auxcare"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown auxiliary, got %d", rec.Code)
	}
}

func TestLogin_TokenCarriesExpiry(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/v1/auth/login", "", `{"id":42,"password":"auxcare"}`)
	var resp auxiliary.LoginResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	s, err := auxiliary.NewSession(resp)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if s.ExpiresAt.IsZero() {
		t.Error("expected token expiry")
	}
}

func TestRoutes_RequireToken(t *testing.T) {
	e, _ := newTestServer(t)
	if rec := do(e, http.MethodGet, "/api/v1/rooms", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/rooms", "garbage", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("expected public health, got %d", rec.Code)
	}
}

func TestRooms_AssignAndRelease(t *testing.T) {
	e, _ := newTestServer(t)
	token := login(t, e)

	rec := do(e, http.MethodGet, "/api/v1/rooms", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list rooms: %d", rec.Code)
	}
	var rooms []room.Room
	_ = json.Unmarshal(rec.Body.Bytes(), &rooms)
	if len(rooms) != 4 || len(room.AssignedPatients(rooms)) != 2 {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
	free := rooms[3].Number

	// 1000 and 1001 are placed by the seeder; 1002 is not.
	rec = do(e, http.MethodPut, "/api/v1/rooms/"+strconv.Itoa(free)+"/patient", token, `{"historialNumber":1002}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"created":true`) {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodPut, "/api/v1/rooms/"+strconv.Itoa(free)+"/patient", token, `{"historialNumber":1003}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for occupied room, got %d", rec.Code)
	}
	rec = do(e, http.MethodDelete, "/api/v1/rooms/"+strconv.Itoa(free)+"/patient", token, "")
	if rec.Code != http.StatusOK {
		t.Errorf("release: %d", rec.Code)
	}
	rec = do(e, http.MethodDelete, "/api/v1/rooms/abc/patient", token, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad room number, got %d", rec.Code)
	}
}

func TestPatients_ListAndGet(t *testing.T) {
	e, _ := newTestServer(t)
	token := login(t, e)

	rec := do(e, http.MethodGet, "/api/v1/patients?limit=4&offset=0", token, "")
	var page pagination.Page[patient.Patient]
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 6 || len(page.Data) != 4 || !page.HasMore {
		t.Errorf("unexpected page total=%d len=%d more=%v", page.Total, len(page.Data), page.HasMore)
	}

	if rec := do(e, http.MethodGet, "/api/v1/patients/1000", token, ""); rec.Code != http.StatusOK {
		t.Errorf("get patient: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/patients/999999", token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPatients_CreateValidatesAndRejectsDuplicates(t *testing.T) {
	e, _ := newTestServer(t)
	token := login(t, e)

	body := `{"historialNumber":2000,"dni":"12345678Z","name":"Pilar","surname":"Ruiz"}`
	if rec := do(e, http.MethodPost, "/api/v1/patients", token, body); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/api/v1/patients", token, body); rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/v1/patients", token, `{"historialNumber":2001}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid patient, got %d", rec.Code)
	}
}

func TestDiagnosis_NotFoundThenSaved(t *testing.T) {
	e, _ := newTestServer(t)
	token := login(t, e)

	// 1005 has no room, so the seeder gave it no diagnosis.
	if rec := do(e, http.MethodGet, "/api/v1/patients/1005/diagnosis", token, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, "/api/v1/patients/1005/diagnosis", token, `{"description":"Gripe"}`); rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/api/v1/patients/1005/diagnosis", token, ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 after save, got %d", rec.Code)
	}
}

func TestPrescriptions(t *testing.T) {
	e, _ := newTestServer(t)
	token := login(t, e)

	if rec := do(e, http.MethodGet, "/api/v1/medications", token, ""); rec.Code != http.StatusOK {
		t.Fatalf("catalog: %d", rec.Code)
	}
	body := `{"medicationId":1,"frequency":"cada 8 h"}`
	if rec := do(e, http.MethodPost, "/api/v1/patients/1000/prescriptions", token, body); rec.Code != http.StatusCreated {
		t.Fatalf("prescribe: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/api/v1/patients/1000/prescriptions", token, body); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/v1/patients/1000/prescriptions", token, `{"medicationId":1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without frequency, got %d", rec.Code)
	}
}

func TestCareRecords_AuthorFromToken(t *testing.T) {
	e, store := newTestServer(t)
	token := login(t, e)

	body := `{"systolicBp":120,"diastolicBp":80,"pulse":70,"temperature":36.5,"auxiliaryId":99}`
	if rec := do(e, http.MethodPost, "/api/v1/patients/1004/care-records", token, body); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	rs, err := store.ListCareRecords(context.Background(), 1004)
	if err != nil || len(rs) != 1 {
		t.Fatalf("expected one record, got %v %v", rs, err)
	}
	if rs[0].AuxiliaryID != 42 {
		t.Errorf("expected author 42 from token, got %d", rs[0].AuxiliaryID)
	}

	rec := do(e, http.MethodGet, "/api/v1/patients/1004/care-records", token, "")
	var got []care.Record
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got) != 1 {
		t.Errorf("expected one record over http, got %d", len(got))
	}

	bad := `{"systolicBp":80,"diastolicBp":120}`
	if rec := do(e, http.MethodPost, "/api/v1/patients/1004/care-records", token, bad); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted pressures, got %d", rec.Code)
	}
}

func TestMetrics_CountsServedRequests(t *testing.T) {
	e, _ := newTestServer(t)
	token := login(t, e)
	do(e, http.MethodGet, "/api/v1/rooms", token, "")

	rec := do(e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `auxcare_http_requests_total{method="GET",route="/api/v1/rooms",status="200"} 1`) {
		t.Errorf("rooms request not counted:\n%s", body)
	}
}
