package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHistorySortsBars(t *testing.T) {
	broker := &fakeBroker{history: map[string]string{
		"TSLA": `[{"timestamp":1700000120,"close":102.5},{"timestamp":1700000000,"close":101},{"timestamp":1700000060,"close":101.7}]`,
	}}
	server := httptest.NewServer(broker.handler(t))
	defer server.Close()

	feed := NewHistoryFeed(newTestSession(server.URL), zerolog.Nop())
	series, err := feed.History(context.Background(), "TSLA", time.Unix(1699990000, 0), time.Unix(1700000200, 0), "minute_1")
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if series.Symbol != "TSLA" || series.Len() != 3 {
		t.Fatalf("unexpected series %+v", series)
	}
	latest, _ := series.Latest()
	if latest.Close != 102.5 || latest.Ts.Unix() != 1700000120 {
		t.Fatalf("expected newest bar last, got %+v", latest)
	}
	if series.Samples[0].Close != 101 {
		t.Fatalf("expected oldest bar first, got %+v", series.Samples[0])
	}
}

func TestHistorySendsQuery(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/connect/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		q := r.URL.Query()
		got = map[string]string{"symbol": q.Get("symbol"), "period": q.Get("period"), "from": q.Get("from"), "to": q.Get("to")}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	feed := NewHistoryFeed(newTestSession(server.URL), zerolog.Nop())
	if _, err := feed.History(context.Background(), "KO", time.Unix(100, 0), time.Unix(200, 0), ""); err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	want := map[string]string{"symbol": "KO", "period": "minute_1", "from": "100", "to": "200"}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("query %s: expected %s got %s", k, v, got[k])
		}
	}
}

func TestHistoryFailuresAreFetchErrors(t *testing.T) {
	broker := &fakeBroker{history: map[string]string{"BAD": `{not json`}}
	server := httptest.NewServer(broker.handler(t))
	defer server.Close()
	feed := NewHistoryFeed(newTestSession(server.URL), zerolog.Nop())

	for _, sym := range []string{"NVDA", "BAD"} {
		_, err := feed.History(context.Background(), sym, time.Now().Add(-time.Hour), time.Now(), "")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("%s: expected FetchError, got %v", sym, err)
		}
		if fetchErr.Symbol != sym {
			t.Fatalf("unexpected symbol on error: %s", fetchErr.Symbol)
		}
	}
}

func TestHistoryRejectsMalformedBars(t *testing.T) {
	broker := &fakeBroker{history: map[string]string{
		"MISSING":  `[{"timestamp":1700000000,"close":100},{"timestamp":1700000060}]`,
		"ZERO":     `[{"timestamp":1700000000,"close":0}]`,
		"NEGATIVE": `[{"timestamp":1700000000,"close":-3.5}]`,
		"NULL":     `[{"timestamp":1700000000,"close":null}]`,
	}}
	server := httptest.NewServer(broker.handler(t))
	defer server.Close()
	feed := NewHistoryFeed(newTestSession(server.URL), zerolog.Nop())

	for _, sym := range []string{"MISSING", "ZERO", "NEGATIVE", "NULL"} {
		series, err := feed.History(context.Background(), sym, time.Unix(1699990000, 0), time.Unix(1700000200, 0), "")
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("%s: expected FetchError, got %v", sym, err)
		}
		if series.Len() != 0 {
			t.Fatalf("%s: expected no samples on malformed bar, got %d", sym, series.Len())
		}
	}
}

func TestHistoryAuthFailureSurfacesAsFetchError(t *testing.T) {
	broker := &fakeBroker{rejectAuth: true}
	server := httptest.NewServer(broker.handler(t))
	defer server.Close()

	feed := NewHistoryFeed(newTestSession(server.URL), zerolog.Nop())
	_, err := feed.History(context.Background(), "AAPL", time.Now().Add(-time.Hour), time.Now(), "")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected wrapped AuthError, got %v", err)
	}
}

func TestHistoryTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/connect/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	feed := NewHistoryFeed(newTestSession(server.URL), zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := feed.History(ctx, "SPY", time.Now().Add(-time.Hour), time.Now(), "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
