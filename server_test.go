package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakePlacer struct {
	err    error
	dishes []string
}

func (f *fakePlacer) PlaceOrder(dishQuery string) error {
	f.dishes = append(f.dishes, dishQuery)
	return f.err
}

func postOrder(t *testing.T, placer orderPlacer, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := newRouter(placer, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestOrderEndpointSuccess(t *testing.T) {
	placer := &fakePlacer{}
	rec := postOrder(t, placer, `{"dish": "Paneer Tikka"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	want := `{"message":"Order placed for Paneer Tikka."}`
	if rec.Body.String() != want {
		t.Errorf("Expected body %s, got %s", want, rec.Body.String())
	}
	if len(placer.dishes) != 1 || placer.dishes[0] != "Paneer Tikka" {
		t.Errorf("Expected workflow to receive 'Paneer Tikka', got %v", placer.dishes)
	}
}

func TestOrderEndpointMissingDish(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Empty body", ""},
		{"Not JSON", "dish=pizza"},
		{"Empty object", `{}`},
		{"Blank dish", `{"dish": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			placer := &fakePlacer{}
			rec := postOrder(t, placer, tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rec.Code)
			}
			want := `{"error":"Please provide a dish name."}`
			if rec.Body.String() != want {
				t.Errorf("Expected body %s, got %s", want, rec.Body.String())
			}
			if len(placer.dishes) != 0 {
				t.Errorf("Expected workflow to stay untouched, got %v", placer.dishes)
			}
		})
	}
}

func TestOrderEndpointWorkflowFailure(t *testing.T) {
	placer := &fakePlacer{err: &DishNotAvailableError{Query: "Biryani"}}
	rec := postOrder(t, placer, `{"dish": "Biryani"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rec.Code)
	}
	want := `{"error":"Sorry, the dish 'Biryani' is not available. Please suggest another dish."}`
	if rec.Body.String() != want {
		t.Errorf("Expected body %s, got %s", want, rec.Body.String())
	}
}
