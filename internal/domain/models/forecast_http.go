package models

// Requests for forecast HTTP endpoints. Defined in domain for reuse by the kafka handler.

type ForecastRequest struct {
	Symbol string `param:"symbol" query:"symbol" json:"symbol" validate:"required"`
	Days   int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
	Period string `query:"period" json:"period" default:"1y" validate:"oneof=1y 2y 5y 10y max"`
}

type RecordsForecastRequest struct {
	Symbol  string        `json:"symbol" default:"CUSTOM"`
	Days    int           `json:"days" default:"30" validate:"gte=1,lte=365"`
	Records []PriceRecord `json:"records" validate:"required,min=2,dive"`
}

type HistoryRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Period string `query:"period" json:"period" default:"1y" validate:"oneof=1mo 3mo 6mo 1y 2y 5y 10y max"`
}
