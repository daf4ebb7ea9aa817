package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (r recordingCloser) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func TestRunContextClosesResourcesInOrder(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.ShutdownTimeout = time.Second

	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(18479))
	app := New(cfg, nil, srv)

	var order []string
	app.AddCloser("publisher", recordingCloser{name: "publisher", order: &order})
	app.AddCloser("clickhouse", recordingCloser{name: "clickhouse", order: &order, err: errors.New("already closed")})
	app.AddCloser("none", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.RunContext(ctx))
	assert.Equal(t, []string{"publisher", "clickhouse"}, order)
}
