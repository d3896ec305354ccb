package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

func TestYahoo_ImplementsProvider(t *testing.T) {
	var _ provider.Provider = (*Yahoo)(nil)
}

func TestYahoo_Name(t *testing.T) {
	y := New(provider.Config{}, nil)
	if y.Name() != "yahoo" {
		t.Errorf("expected 'yahoo', got '%s'", y.Name())
	}
}

func TestYahoo_ToYahooSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"0700.HK", "0700.HK"},
		{"600519.SH", "600519.SS"}, // Shanghai -> SS for Yahoo
		{"000001.SZ", "000001.SZ"},
	}

	for _, tc := range tests {
		got := toYahooSymbol(tc.input)
		if got != tc.expected {
			t.Errorf("toYahooSymbol(%s) = %s, want %s", tc.input, got, tc.expected)
		}
	}
}

func TestValidateSymbol(t *testing.T) {
	valid := []string{"AAPL", "BRK.B", "0700.HK", "^GSPC"}
	for _, s := range valid {
		if err := validateSymbol(s); err != nil {
			t.Errorf("validateSymbol(%s) unexpected error: %v", s, err)
		}
	}
	invalid := []string{"", "AAPL/../x", "A B", "ABCDEFGHIJKLMNOPQRSTU"}
	for _, s := range invalid {
		if err := validateSymbol(s); err == nil {
			t.Errorf("validateSymbol(%q) expected error", s)
		}
	}
}

func newTestYahoo(t *testing.T, body string) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	y := New(provider.Config{BaseURL: srv.URL, RateLimit: 100}, nil)
	y.now = func() time.Time { return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) }
	return y
}

func TestYahoo_FetchQuote(t *testing.T) {
	y := newTestYahoo(t, `{"chart":{"result":[{"meta":{
		"symbol":"MSFT","regularMarketPrice":310.0,"previousClose":300.0,
		"regularMarketDayHigh":312.5,"regularMarketVolume":1000}}],"error":null}}`)

	q, err := y.FetchQuote(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", q.Source)
	assert.Equal(t, 310.0, q.CurrentPrice)
	assert.Equal(t, 10.0, q.Change)
	assert.Equal(t, "3.33%", q.ChangePercent)
	assert.Equal(t, 312.5, q.High)
	assert.Equal(t, 310.0, q.Low, "missing low defaults to the current price")
	assert.Equal(t, int64(1000), q.Volume)
}

func TestYahoo_FetchQuoteErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *core.Error
	}{
		{"chart error", `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, core.ErrProviderFailed},
		{"empty result", `{"chart":{"result":[]}}`, core.ErrNoData},
		{"zero price", `{"chart":{"result":[{"meta":{"regularMarketPrice":0}}]}}`, core.ErrNoData},
		{"malformed", `<html>`, core.ErrMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := newTestYahoo(t, tt.body)
			_, err := y.FetchQuote(context.Background(), "ZZZZ")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestYahoo_FetchHistory(t *testing.T) {
	y := newTestYahoo(t, `{"chart":{"result":[{"meta":{},
		"timestamp":[1709078400,1709164800,1709251200],
		"indicators":{"quote":[{"open":[1,2,3],"high":[1,2,3],"low":[1,2,3],
		"close":[10,null,12],"volume":[100,200,300]}]}}]}}`)

	bars, err := y.FetchHistory(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	require.Len(t, bars, 2, "null close is skipped")
	assert.Equal(t, 12.0, bars[0].Close, "most recent first")
	assert.Equal(t, 10.0, bars[1].Close)
	assert.True(t, bars[0].Time.After(bars[1].Time))
}
