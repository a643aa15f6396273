package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"pairsbot-go/internal/signal"
)

const historyPath = "/marketdata/history"

// DefaultPeriod is the minute-bar granularity used by the pair engine.
const DefaultPeriod = "minute_1"

type historyBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// HistoryFeed pulls close-price history for a symbol from the broker market data API.
type HistoryFeed struct {
	session *Session
	log     zerolog.Logger
}

// NewHistoryFeed builds a feed on top of an authenticated session.
func NewHistoryFeed(session *Session, log zerolog.Logger) *HistoryFeed {
	return &HistoryFeed{session: session, log: log}
}

// History returns the closes for symbol between from and to, oldest first.
// Every failure, including a timeout on ctx, is returned as *FetchError.
func (f *HistoryFeed) History(ctx context.Context, symbol string, from, to time.Time, period string) (signal.Series, error) {
	if period == "" {
		period = DefaultPeriod
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("period", period)
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.session.URL(historyPath)+"?"+q.Encode(), nil)
	if err != nil {
		return signal.Series{}, &FetchError{Symbol: symbol, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.session.Client().Do(req)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return signal.Series{}, &FetchError{Symbol: symbol, Err: authErr}
		}
		return signal.Series{}, &FetchError{Symbol: symbol, Err: fmt.Errorf("http do: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return signal.Series{}, &FetchError{Symbol: symbol, Status: resp.StatusCode, Err: errors.New("unexpected status")}
	}

	var bars []historyBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return signal.Series{}, &FetchError{Symbol: symbol, Err: fmt.Errorf("decode response: %w", err)}
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })

	series := signal.Series{Symbol: symbol, Samples: make([]signal.Sample, 0, len(bars))}
	for _, bar := range bars {
		if bar.Close == nil || !(*bar.Close > 0) || math.IsInf(*bar.Close, 0) {
			return signal.Series{}, &FetchError{Symbol: symbol, Err: fmt.Errorf("malformed bar at %d: missing or non-positive close", bar.Timestamp)}
		}
		series.Samples = append(series.Samples, signal.Sample{Ts: time.Unix(bar.Timestamp, 0).UTC(), Close: *bar.Close})
	}
	f.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched history")
	return series, nil
}
