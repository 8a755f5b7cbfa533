package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&offset=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?offset=-5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestParams_ValuesRoundTrip(t *testing.T) {
	p := Params{Limit: 10, Offset: 30}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+p.Values().Encode(), nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if got := FromContext(c); got != p {
		t.Errorf("expected %+v, got %+v", p, got)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	if !NewResponse(nil, 45, 20, 20).HasMore {
		t.Error("expected has_more for offset 20 of 45")
	}
	if NewResponse(nil, 45, 20, 40).HasMore {
		t.Error("expected no more results on the last page")
	}
}

func TestParams_Next(t *testing.T) {
	p := Params{Limit: 20, Offset: 0}
	if !p.HasNext(21) {
		t.Error("expected a next page")
	}
	if p.HasNext(20) {
		t.Error("expected no next page")
	}
	if n := p.Next(); n.Offset != 20 || n.Limit != 20 {
		t.Errorf("unexpected next params %+v", n)
	}
}
