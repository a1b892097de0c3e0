package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/config"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/feed"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/sink"
	"github.com/jbabiesrock-netizen/enhanced-trading-bot/testutils"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Enabled = false
	cfg.Log.Level = "error"
	return cfg
}

func TestProvidePublishersDefaults(t *testing.T) {
	log := testutils.NewMockLogger()
	pubs, cleanup, err := ProvidePublishers(testConfig(), log, sink.NewHub(log))
	require.NoError(t, err)
	defer cleanup()

	names := make([]string, 0, len(pubs))
	for _, p := range pubs {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"log", "websocket"}, names)
}

func TestProvidePublishersRejectsKafkaWithoutBrokers(t *testing.T) {
	cfg := testConfig()
	cfg.Sinks.Kafka.Enabled = true
	log := testutils.NewMockLogger()
	_, _, err := ProvidePublishers(cfg, log, sink.NewHub(log))
	assert.Error(t, err)
}

func TestProvideFeedSelectsByType(t *testing.T) {
	cfg := testConfig()
	f, cleanup, err := ProvideFeed(cfg, testutils.NewMockLogger())
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &feed.CoinGecko{}, f)

	cfg.Feed.Type = "kafka"
	cfg.Feed.Kafka.Brokers = []string{"localhost:9092"}
	f, cleanup, err = ProvideFeed(cfg, testutils.NewMockLogger())
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, &feed.KafkaFeed{}, f)

	cfg.Feed.Type = "carrier-pigeon"
	_, _, err = ProvideFeed(cfg, testutils.NewMockLogger())
	assert.Error(t, err)
}

func TestProvideServerDisabled(t *testing.T) {
	assert.Nil(t, ProvideServer(testConfig(), nil, testutils.NewMockLogger()))
}

func TestAppRunPollsFeedAndShutsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ethereum": {"usd": 3000}, "bitcoin": {"usd": 60000}}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Feed.CoinGecko.BaseURL = srv.URL
	cfg.Schedule.IngestInterval = 10 * time.Millisecond
	cfg.Schedule.EvaluateInterval = 10 * time.Millisecond
	cfg.Schedule.AutoStart = true

	a, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		p, ok := a.Engine().Store().LastPrice("ethereum")
		return ok && p == 3000
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return a.Engine().Status().FeedConnected }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, a.Engine().Running())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not shut down")
	}
	assert.False(t, a.Engine().Running())
}
