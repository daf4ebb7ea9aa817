package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	pkgmetrics "PriceCast/pkg/metrics"
)

// KafkaForecastHandler consumes forecast requests. The use case publishes
// each result to the results topic. Requests that can never succeed are
// logged and acknowledged; only upstream failures are returned for retry.
type KafkaForecastHandler struct {
	topic   string
	uc      *ForecastUseCase
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewKafkaForecastHandler(topic string, uc *ForecastUseCase, metrics domrepo.Metrics, l *applogger.Logger) *KafkaForecastHandler {
	if l == nil {
		l = applogger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &KafkaForecastHandler{topic: topic, uc: uc, metrics: metrics, l: l}
}

func (h *KafkaForecastHandler) Topic() string { return h.topic }

// Handle expects {"symbol": "AAPL", "days": 30, "period": "1y"}.
func (h *KafkaForecastHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ForecastRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.l.Warn("forecast request dropped: bad payload", applogger.Error(err))
		return nil
	}
	if verrs := xhttp.ValidateStruct(ctx, &req); len(verrs) > 0 {
		h.metrics.RecordError("consumer_validate")
		h.l.Warn("forecast request dropped: invalid",
			applogger.String("symbol", req.Symbol),
			applogger.String("reason", verrs[0].Message))
		return nil
	}

	_, err := h.uc.Forecast(ctx, ForecastParams{Symbol: req.Symbol, Days: req.Days, Period: req.Period})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrHistoryUnavailable) {
		return fmt.Errorf("forecast %s: %w", req.Symbol, err)
	}
	h.l.Warn("forecast request dropped",
		applogger.String("symbol", req.Symbol),
		applogger.String("kind", ErrorKind(err)),
		applogger.Error(err))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaForecastHandler)(nil)
