package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// ErrSymbolNotFound is returned when the chart API knows no such symbol.
var ErrSymbolNotFound = drepo.ErrSymbolNotFound

// Client fetches daily bars from the Yahoo Finance chart API.
type Client struct {
	http *xhttp.Client
	l    *applogger.Logger
}

var (
	_ drepo.HistoryProvider = (*Client)(nil)
	_ drepo.QuoteProvider   = (*Client)(nil)
)

// New creates a chart API client on top of a configured HTTP client.
func New(hc *xhttp.Client, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{http: hc, l: l}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		Currency           string  `json:"currency"`
		GMTOffset          int     `json:"gmtoffset"`
		ExchangeName       string  `json:"fullExchangeName"`
		LongName           string  `json:"longName"`
		ShortName          string  `json:"shortName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// GetDailyHistory returns daily bars for period, oldest first. Bars without a
// close (halts, partial sessions) are dropped. Dates are in the exchange's
// local calendar.
func (c *Client) GetDailyHistory(ctx context.Context, symbol, period string) ([]models.PriceRecord, error) {
	p := drepo.NormalizePeriod(period)
	res, err := c.chart(ctx, symbol, string(p))
	if err != nil {
		return nil, err
	}
	records := toRecords(res)
	c.l.Debug("yahoo history fetched",
		applogger.String("symbol", symbol),
		applogger.String("period", string(p)),
		applogger.Int("records", len(records)))
	return records, nil
}

// GetQuote returns the chart meta block of the last few sessions. Price is
// the regular market price, or the latest close when meta carries none.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	res, err := c.chart(ctx, symbol, "5d")
	if err != nil {
		return nil, err
	}
	q := &models.StockQuote{
		Symbol:   res.Meta.Symbol,
		Name:     res.Meta.LongName,
		Exchange: res.Meta.ExchangeName,
		Currency: res.Meta.Currency,
		Price:    res.Meta.RegularMarketPrice,
	}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	if q.Name == "" {
		q.Name = res.Meta.ShortName
	}
	if q.Price <= 0 {
		if recs := toRecords(res); len(recs) > 0 {
			q.Price = recs[len(recs)-1].Close
		}
	}
	return q, nil
}

func (c *Client) chart(ctx context.Context, symbol, rng string) (chartResult, error) {
	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"range":          {rng},
			"interval":       {"1d"},
			"includePrePost": {"false"},
		},
	}, &resp)
	if err != nil {
		if xhttp.IsStatus(err, http.StatusNotFound) {
			return chartResult{}, fmt.Errorf("yahoo chart %s: %w", symbol, ErrSymbolNotFound)
		}
		return chartResult{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return chartResult{}, fmt.Errorf("yahoo chart %s: %w", symbol, ErrSymbolNotFound)
		}
		return chartResult{}, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return chartResult{}, fmt.Errorf("yahoo chart %s: %w", symbol, ErrSymbolNotFound)
	}
	return resp.Chart.Result[0], nil
}

func toRecords(r chartResult) []models.PriceRecord {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	loc := time.FixedZone("exchange", r.Meta.GMTOffset)

	out := make([]models.PriceRecord, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		cl := at(q.Close, i)
		if cl <= 0 {
			continue
		}
		out = append(out, models.PriceRecord{
			Date:   util.FormatDate(time.Unix(ts, 0).In(loc)),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  cl,
			Volume: at(q.Volume, i),
		})
	}
	return out
}

func at(v []*float64, i int) float64 {
	if i >= len(v) || v[i] == nil {
		return 0
	}
	return *v[i]
}
