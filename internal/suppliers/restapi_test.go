package suppliers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/AudicoSA/audico-sync/internal/domain/sync"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/fetch"
	"github.com/AudicoSA/audico-sync/internal/infrastructure/pricing"
)

func restServerPage(skus ...string) restPage {
	page := restPage{}
	for _, sku := range skus {
		page.Products = append(page.Products, restProduct{
			SKU:         sku,
			Name:        "Speaker " + sku,
			Brand:       "Denon",
			Category:    "Speakers",
			CostPrice:   json.Number("1000"),
			RetailPrice: json.Number("1800"),
			StockCPT:    2,
			StockJHB:    1,
		})
	}
	return page
}

func restTestConfig(baseURL string) RESTAPIConfig {
	return RESTAPIConfig{
		BaseURL:  baseURL,
		APIKey:   "dealer-key",
		PageSize: 2,
		MaxPages: 10,
		Delay:    time.Millisecond,
		Timeout:  5 * time.Second,
	}
}

func TestRESTAPISource_Fetch(t *testing.T) {
	t.Run("walks pages until a short page", func(t *testing.T) {
		var gotKey string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("X-API-Key")
			switch r.URL.Query().Get("page") {
			case "1":
				json.NewEncoder(w).Encode(restServerPage("DN-100", "DN-200"))
			case "2":
				json.NewEncoder(w).Encode(restServerPage("DN-300"))
			default:
				t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
			}
		}))
		defer server.Close()

		source := NewRESTAPISource(restTestConfig(server.URL), nil)
		entries, err := source.Fetch(context.Background(), uuid.New(), 0)
		require.NoError(t, err)

		require.Len(t, entries, 3)
		assert.Equal(t, "dealer-key", gotKey)
		assert.Equal(t, "DN-100", entries[0].SKU)
		assert.Equal(t, "DN-300", entries[2].SKU)
		for _, e := range entries {
			require.NoError(t, e.Err)
			require.NotNil(t, e.Product)
		}
	})

	t.Run("treats 400 as end of pages", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "1" {
				json.NewEncoder(w).Encode(restServerPage("DN-100", "DN-200"))
				return
			}
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		source := NewRESTAPISource(restTestConfig(server.URL), nil)
		entries, err := source.Fetch(context.Background(), uuid.New(), 0)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("falls back to since cursor when pages stall", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if since := q.Get("since_id"); since != "" {
				switch since {
				case "DN-200":
					json.NewEncoder(w).Encode(restServerPage("DN-300", "DN-400"))
				default:
					json.NewEncoder(w).Encode(restPage{})
				}
				return
			}
			// Page parameter never advances past the first page.
			json.NewEncoder(w).Encode(restServerPage("DN-100", "DN-200"))
		}))
		defer server.Close()

		source := NewRESTAPISource(restTestConfig(server.URL), nil)
		entries, err := source.Fetch(context.Background(), uuid.New(), 0)
		require.NoError(t, err)

		skus := make([]string, 0, len(entries))
		for _, e := range entries {
			skus = append(skus, e.SKU)
		}
		assert.Equal(t, []string{"DN-100", "DN-200", "DN-300", "DN-400"}, skus)
	})

	t.Run("limit truncates the fetched set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page := r.URL.Query().Get("page")
			n := 0
			fmt.Sscanf(page, "%d", &n)
			json.NewEncoder(w).Encode(restServerPage(
				fmt.Sprintf("DN-%d01", n),
				fmt.Sprintf("DN-%d02", n),
			))
		}))
		defer server.Close()

		source := NewRESTAPISource(restTestConfig(server.URL), nil)
		entries, err := source.Fetch(context.Background(), uuid.New(), 3)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("rejected key is an authentication failure", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		source := NewRESTAPISource(restTestConfig(server.URL), nil)
		_, err := source.Fetch(context.Background(), uuid.New(), 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, syncdomain.ErrAuthentication)
		assert.Equal(t, 1, requests, "auth failures must not be retried")
	})

	t.Run("server errors are retried", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			if requests < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(restServerPage("DN-100"))
		}))
		defer server.Close()

		cfg := restTestConfig(server.URL)
		source := NewRESTAPISource(cfg, nil)
		source.retry = fetch.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

		entries, err := source.Fetch(context.Background(), uuid.New(), 0)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, 3, requests)
	})
}

func TestRESTAPISource_Transform(t *testing.T) {
	supplierID := uuid.New()

	t.Run("maps prices stock and classification", func(t *testing.T) {
		source := NewRESTAPISource(RESTAPIConfig{BaseURL: "http://example.test"}, nil)
		entry := source.transform(supplierID, restProduct{
			SKU:         "DN-100",
			Name:        "Denon AVR-X1800H Receiver",
			Brand:       "Denon",
			Category:    "Receivers",
			CostPrice:   json.Number("1000"),
			RetailPrice: json.Number("1800"),
			StockCPT:    2,
			StockJHB:    3,
			StockDBN:    1,
			Images:      []string{"https://cdn.example.test/dn-100.jpg"},
			Specs:       map[string]string{"Channels": "7.2"},
		})
		require.NoError(t, entry.Err)
		p := entry.Product

		// Default formula is VAT plus margin A: 1000 * 1.15 * 1.15.
		assert.True(t, p.SellingPrice.Equal(decimal.NewFromFloat(1322.5)), p.SellingPrice.String())
		assert.Equal(t, 6, p.StockTotal)
		assert.True(t, p.Active)
		assert.NotEmpty(t, p.ContentHash)
	})

	t.Run("standard markup formula", func(t *testing.T) {
		source := NewRESTAPISource(RESTAPIConfig{
			BaseURL:       "http://example.test",
			Formula:       pricing.FormulaStandardMarkup,
			MarkupPercent: decimal.NewFromInt(25),
		}, nil)
		entry := source.transform(supplierID, restProduct{
			SKU: "DN-100", Name: "Amp", CostPrice: json.Number("400"),
		})
		require.NoError(t, entry.Err)
		assert.True(t, entry.Product.SellingPrice.Equal(decimal.NewFromInt(500)))
	})

	t.Run("unparseable price is a parse error", func(t *testing.T) {
		source := NewRESTAPISource(RESTAPIConfig{BaseURL: "http://example.test"}, nil)
		entry := source.transform(supplierID, restProduct{
			SKU: "DN-100", Name: "Amp", CostPrice: json.Number("POA"),
		})
		require.Error(t, entry.Err)
		assert.ErrorIs(t, entry.Err, syncdomain.ErrParse)
		assert.Nil(t, entry.Product)
	})

	t.Run("missing sku is a transform error", func(t *testing.T) {
		source := NewRESTAPISource(RESTAPIConfig{BaseURL: "http://example.test"}, nil)
		entry := source.transform(supplierID, restProduct{Name: "Amp"})
		require.Error(t, entry.Err)
		assert.ErrorIs(t, entry.Err, syncdomain.ErrTransform)
	})
}

func TestRESTAPISource_Probe(t *testing.T) {
	t.Run("empty catalog still probes clean", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		source := NewRESTAPISource(restTestConfig(server.URL), nil)
		assert.NoError(t, source.Probe(context.Background()))
	})

	t.Run("unreachable host fails the probe", func(t *testing.T) {
		cfg := restTestConfig("http://127.0.0.1:1")
		source := NewRESTAPISource(cfg, nil)
		source.retry = fetch.RetryPolicy{MaxAttempts: 1}
		err := source.Probe(context.Background())
		assert.ErrorIs(t, err, syncdomain.ErrConnection)
	})
}
