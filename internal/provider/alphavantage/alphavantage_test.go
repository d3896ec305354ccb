package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/folio/internal/core"
	"github.com/newthinker/folio/internal/provider"
)

var _ provider.Provider = (*AlphaVantage)(nil)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *AlphaVantage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(provider.Config{APIKey: "demo", BaseURL: srv.URL, RateLimit: 100}, nil)
}

func TestAlphaVantage_Name(t *testing.T) {
	a := New(provider.Config{}, nil)
	if a.Name() != "alphavantage" {
		t.Errorf("expected 'alphavantage', got '%s'", a.Name())
	}
}

func TestAlphaVantage_FetchQuote(t *testing.T) {
	a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"Global Quote":{
			"01. symbol":"AAPL","02. open":"158.00","03. high":"161.50","04. low":"157.20",
			"05. price":"160.00","06. volume":"51234567","07. latest trading day":"2024-03-01",
			"08. previous close":"158.03","09. change":"1.97","10. change percent":"1.2466%"}}`))
	})

	q, err := a.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "alphavantage", q.Source)
	assert.Equal(t, 160.0, q.CurrentPrice)
	assert.Equal(t, 1.97, q.Change)
	assert.Equal(t, "1.2466%", q.ChangePercent)
	assert.Equal(t, 161.5, q.High)
	assert.Equal(t, int64(51234567), q.Volume)
	assert.Equal(t, 158.03, q.PreviousClose)
}

func TestAlphaVantage_EmbeddedRateLimitIsFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"information", `{"Information":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`},
		{"note", `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := a.FetchQuote(context.Background(), "AAPL")
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrRateLimited), "got %v", err)
		})
	}
}

func TestAlphaVantage_ErrorMessage(t *testing.T) {
	a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message":"Invalid API call."}`))
	})
	_, err := a.FetchQuote(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, core.ErrSymbolNotFound))
}

func TestAlphaVantage_EmptyQuote(t *testing.T) {
	a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote":{}}`))
	})
	_, err := a.FetchQuote(context.Background(), "ZZZZ")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestAlphaVantage_MissingKey(t *testing.T) {
	a := New(provider.Config{}, nil)
	_, err := a.FetchQuote(context.Background(), "AAPL")
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestAlphaVantage_FetchHistoryDaily(t *testing.T) {
	a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Empty(t, r.URL.Query().Get("interval"))
		assert.Empty(t, r.URL.Query().Get("outputsize"), "compact output covers 100 days")
		w.Write([]byte(`{"Meta Data":{},"Time Series (Daily)":{
			"2024-03-01":{"1. open":"10","2. high":"12","3. low":"9","4. close":"11","5. volume":"100"},
			"2024-02-28":{"1. open":"8","2. high":"9","3. low":"7","4. close":"8.5","5. volume":"300"},
			"2024-02-29":{"1. open":"9","2. high":"10","3. low":"8","4. close":"9.5"}}}`))
	})

	bars, err := a.FetchHistory(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	require.Len(t, bars, 3, "sparse data returns what the provider has")
	assert.Equal(t, 11.0, bars[0].Close, "most recent first")
	assert.Equal(t, 9.5, bars[1].Close)
	assert.Equal(t, 8.5, bars[2].Close)
	assert.Equal(t, int64(0), bars[1].Volume, "missing field parses as zero")
}

func TestAlphaVantage_FetchHistoryWindow(t *testing.T) {
	tests := []struct {
		days       int
		function   string
		outputsize string
		key        string
	}{
		{1, "TIME_SERIES_INTRADAY", "", "Time Series (60min)"},
		{5, "TIME_SERIES_INTRADAY", "", "Time Series (60min)"},
		{6, "TIME_SERIES_DAILY", "", "Time Series (Daily)"},
		{250, "TIME_SERIES_DAILY", "full", "Time Series (Daily)"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.function, r.URL.Query().Get("function"))
				assert.Equal(t, tt.outputsize, r.URL.Query().Get("outputsize"))
				w.Write([]byte(`{"` + tt.key + `":{
					"2024-03-01 15:00:00":{"4. close":"11"},
					"2024-03-01 14:00:00":{"4. close":"10"},
					"2024-02-29 15:00:00":{"4. close":"9"}}}`))
			})

			bars, err := a.FetchHistory(context.Background(), "AAPL", tt.days)
			require.NoError(t, err)
			assert.Len(t, bars, min(tt.days, 3))
			assert.Equal(t, 11.0, bars[0].Close)
		})
	}
}

func TestAlphaVantage_FetchHistoryIntraday(t *testing.T) {
	a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_INTRADAY", r.URL.Query().Get("function"))
		assert.Equal(t, "60min", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"Time Series (60min)":{
			"2024-03-01 15:00:00":{"1. open":"10","2. high":"12","3. low":"9","4. close":"11","5. volume":"100"}}}`))
	})

	bars, err := a.FetchHistory(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 15, bars[0].Time.Hour())
}

func TestAlphaVantage_FetchHistoryFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *core.Error
	}{
		{"http 429", http.StatusTooManyRequests, ``, core.ErrRateLimited},
		{"note", http.StatusOK, `{"Note":"API call frequency exceeded"}`, core.ErrRateLimited},
		{"empty series", http.StatusOK, `{"Meta Data":{}}`, core.ErrNoData},
		{"bad date", http.StatusOK, `{"Time Series (Daily)":{"03/01/2024":{"4. close":"1"}}}`, core.ErrMalformedDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := a.FetchHistory(context.Background(), "AAPL", 30)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestAlphaVantage_FetchNews(t *testing.T) {
	a := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NEWS_SENTIMENT", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("tickers"))
		w.Write([]byte(`{"feed":[
			{"title":"Apple beats estimates","summary":"Strong quarter","time_published":"20240301T153000","source":"Reuters","url":"https://example.com/a"},
			{"title":"Second","summary":"","time_published":"20240229T100000","source":"Benzinga"}]}`))
	})

	items, err := a.FetchNews(context.Background(), "AAPL", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Apple beats estimates", items[0].Title)
	assert.Equal(t, "20240301T153000", items[0].PublishedAt)
	assert.Equal(t, "Reuters", items[0].Source)
}
