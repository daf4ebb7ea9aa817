package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"PriceCast/internal/domain/models"
	domsvc "PriceCast/internal/domain/service"
	"PriceCast/pkg/config"
	applogger "PriceCast/pkg/logger"
)

// HTTPModelFitter delegates ARIMA estimation to the Python model service.
// The service is stateless: a fit returns opaque parameters that are sent back
// with every forecast call.
type HTTPModelFitter struct{ base *HTTPServiceBase }

var _ domsvc.ModelFitter = (*HTTPModelFitter)(nil)

func NewHTTPModelFitter(cfg *config.Config, l *applogger.Logger) *HTTPModelFitter {
	return &HTTPModelFitter{base: NewHTTPServiceBase(cfg, l)}
}

type fitReq struct {
	Series []float64         `json:"series"`
	Order  models.ModelOrder `json:"order"`
}

type fitResp struct {
	AIC          float64         `json:"aic"`
	BIC          float64         `json:"bic"`
	Residuals    []float64       `json:"residuals"`
	FittedValues []float64       `json:"fitted_values"`
	NumAR        int             `json:"n_ar"`
	NumMA        int             `json:"n_ma"`
	NumObs       int             `json:"n_obs"`
	Converged    bool            `json:"converged"`
	Params       json.RawMessage `json:"params"`
}

type forecastReq struct {
	Series []float64         `json:"series"`
	Order  models.ModelOrder `json:"order"`
	Params json.RawMessage   `json:"params"`
	Steps  int               `json:"steps"`
	Alpha  float64           `json:"alpha"`
}

type forecastResp struct {
	Mean  []float64 `json:"mean"`
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

func (f *HTTPModelFitter) Fit(ctx context.Context, series []float64, order models.ModelOrder) (domsvc.FittedModel, error) {
	var fr fitResp
	if err := f.base.PostJSON(ctx, "/arima/fit", fitReq{Series: series, Order: order}, &fr); err != nil {
		return nil, fmt.Errorf("fit %s: %w", order, err)
	}
	if !fr.Converged {
		return nil, fmt.Errorf("fit %s: remote model did not converge", order)
	}
	if math.IsNaN(fr.AIC) || len(fr.FittedValues) != len(series) {
		return nil, fmt.Errorf("fit %s: malformed response", order)
	}
	nObs := fr.NumObs
	if nObs == 0 {
		nObs = len(series)
	}
	return &remoteModel{
		base:   f.base,
		series: series,
		order:  order,
		resp:   fr,
		nObs:   nObs,
	}, nil
}

type remoteModel struct {
	base   *HTTPServiceBase
	series []float64
	order  models.ModelOrder
	resp   fitResp
	nObs   int
}

func (m *remoteModel) Order() models.ModelOrder { return m.order }
func (m *remoteModel) AIC() float64             { return m.resp.AIC }
func (m *remoteModel) BIC() float64             { return m.resp.BIC }
func (m *remoteModel) Residuals() []float64     { return m.resp.Residuals }
func (m *remoteModel) FittedValues() []float64  { return m.resp.FittedValues }
func (m *remoteModel) NumAR() int               { return m.resp.NumAR }
func (m *remoteModel) NumMA() int               { return m.resp.NumMA }
func (m *remoteModel) NumObs() int              { return m.nObs }

func (m *remoteModel) Forecast(ctx context.Context, steps int) (models.ModelForecast, error) {
	var fr forecastResp
	err := m.base.PostJSON(ctx, "/arima/forecast", forecastReq{
		Series: m.series,
		Order:  m.order,
		Params: m.resp.Params,
		Steps:  steps,
		Alpha:  0.05,
	}, &fr)
	if err != nil {
		return models.ModelForecast{}, fmt.Errorf("forecast %s: %w", m.order, err)
	}
	if len(fr.Mean) != steps || len(fr.Lower) != steps || len(fr.Upper) != steps {
		return models.ModelForecast{}, fmt.Errorf("forecast %s: expected %d steps, got %d", m.order, steps, len(fr.Mean))
	}
	return models.ModelForecast{Mean: fr.Mean, Lower: fr.Lower, Upper: fr.Upper}, nil
}
