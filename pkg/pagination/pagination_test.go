package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, target string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "/")

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor(t, "/?limit=50&offset=10")

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := paramsFor(t, "/?limit=500")

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := paramsFor(t, "/?offset=-5")

	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	p := paramsFor(t, "/?limit=abc&offset=xyz")

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit for invalid input, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for invalid input, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 10, Params{Limit: 2, Offset: 0})
	if !resp.HasMore {
		t.Error("expected has_more when more items remain")
	}

	resp = NewResponse([]string{"a"}, 3, Params{Limit: 2, Offset: 2})
	if resp.HasMore {
		t.Error("expected no has_more on the last page")
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name       string
		p          Params
		n          int
		start, end int
	}{
		{"first page", Params{Limit: 2, Offset: 0}, 5, 0, 2},
		{"last partial", Params{Limit: 2, Offset: 4}, 5, 4, 5},
		{"past end", Params{Limit: 2, Offset: 9}, 5, 5, 5},
		{"no limit", Params{Limit: 0, Offset: 1}, 5, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.p.Window(tt.n)
			if start != tt.start || end != tt.end {
				t.Errorf("Window(%d) = [%d,%d), want [%d,%d)", tt.n, start, end, tt.start, tt.end)
			}
		})
	}
}
