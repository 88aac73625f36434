// Package di provides dependency injection container
package di

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ssargent/minewatch/pkg/api" //nolint:depguard
	"github.com/ssargent/minewatch/pkg/codec"
	"github.com/ssargent/minewatch/pkg/config"
	"github.com/ssargent/minewatch/pkg/ingest"
	"github.com/ssargent/minewatch/pkg/logging"
	"github.com/ssargent/minewatch/pkg/simulator"
	"github.com/ssargent/minewatch/pkg/table"
	"github.com/ssargent/minewatch/pkg/table/dynamo"
	"github.com/ssargent/minewatch/pkg/table/pebblestore"
	"github.com/ssargent/minewatch/pkg/table/redisstore"
)

// ServiceName tags every log line the container's logger writes
const ServiceName = "minewatch"

// StoreFactory opens the table store selected by the configuration
type StoreFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (table.Store, error)

// BrokerFactory connects to the MQTT broker
type BrokerFactory func(cfg config.MQTT, logger *zap.Logger) (ingest.Broker, error)

// Option customizes a Container
type Option func(*Container)

// WithLogger replaces the logger built from the logging config
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithCodec replaces the default reading codec (for testing)
func WithCodec(rc *codec.ReadingCodec) Option {
	return func(c *Container) { c.codec = rc }
}

// WithStoreFactory allows overriding how the table store is opened (for testing)
func WithStoreFactory(f StoreFactory) Option {
	return func(c *Container) { c.storeFactory = f }
}

// WithBrokerFactory allows overriding how the MQTT broker is reached (for testing)
func WithBrokerFactory(f BrokerFactory) Option {
	return func(c *Container) { c.brokerFactory = f }
}

// Container holds all the dependencies for the application. The store and
// broker are opened on first use so commands only pay for what they touch.
type Container struct {
	cfg           *config.Config
	logger        *zap.Logger
	codec         *codec.ReadingCodec
	storeFactory  StoreFactory
	brokerFactory BrokerFactory

	mu      sync.Mutex
	store   table.Store
	broker  ingest.Broker
	metrics *api.Metrics
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("container requires a configuration")
	}

	c := &Container{
		cfg:           cfg,
		storeFactory:  OpenStore,
		brokerFactory: ConnectBroker,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, ServiceName)
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}
	if c.codec == nil {
		c.codec = codec.NewReadingCodec(nil)
	}
	return c, nil
}

// Config returns the effective configuration
func (c *Container) Config() *config.Config { return c.cfg }

// Logger returns the application logger
func (c *Container) Logger() *zap.Logger { return c.logger }

// Codec returns the reading codec
func (c *Container) Codec() *codec.ReadingCodec { return c.codec }

// Store opens the configured table store on first use
func (c *Container) Store(ctx context.Context) (table.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}
	store, err := c.storeFactory(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

// Readings returns the readings table named in the configuration
func (c *Container) Readings(ctx context.Context) (*table.Readings, error) {
	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}
	return table.NewReadings(store, c.codec, c.cfg.Table, table.WithLogger(c.logger)), nil
}

// Broker connects to the MQTT broker on first use
func (c *Container) Broker() (ingest.Broker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broker != nil {
		return c.broker, nil
	}
	broker, err := c.brokerFactory(c.cfg.MQTT, c.logger)
	if err != nil {
		return nil, err
	}
	c.broker = broker
	return broker, nil
}

// Metrics returns the shared Prometheus metrics
func (c *Container) Metrics() *api.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics == nil {
		c.metrics = api.NewMetrics()
	}
	return c.metrics
}

// Server builds the REST API server. An "auto" API key is replaced by a
// freshly generated one that is logged once.
func (c *Container) Server(ctx context.Context) (*api.Server, error) {
	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}
	apiKey, err := ResolveAPIKey(c.cfg.Server.APIKey, c.logger)
	if err != nil {
		return nil, err
	}

	serverConfig := api.ServerConfig{
		Bind:        c.cfg.Server.Bind,
		Port:        c.cfg.Server.Port,
		APIKey:      apiKey,
		CORSOrigins: c.cfg.Server.CORSOrigins,
	}
	return api.NewServer(store, c.codec, serverConfig, c.Metrics(), c.logger), nil
}

// Ingestor builds an MQTT subscriber that stores readings in the configured table
func (c *Container) Ingestor(ctx context.Context) (*ingest.Ingestor, error) {
	readings, err := c.Readings(ctx)
	if err != nil {
		return nil, err
	}
	if err := readings.EnsureTable(ctx); err != nil {
		return nil, err
	}
	broker, err := c.Broker()
	if err != nil {
		return nil, err
	}
	return ingest.NewIngestor(broker, c.codec, readings, c.cfg.MQTT.Topic, c.cfg.MQTT.QoS, c.logger), nil
}

// Publisher builds an MQTT publisher for the configured topic
func (c *Container) Publisher() (*ingest.Publisher, error) {
	broker, err := c.Broker()
	if err != nil {
		return nil, err
	}
	return ingest.NewPublisher(broker, c.codec, c.cfg.MQTT.Topic, c.cfg.MQTT.QoS), nil
}

// Simulator sinks
const (
	SinkStore = "store"
	SinkMQTT  = "mqtt"
)

// Simulator builds a simulator emitting into the table store or onto MQTT
func (c *Container) Simulator(ctx context.Context, sink string) (*simulator.Simulator, error) {
	var target simulator.Sink
	switch sink {
	case SinkStore, "":
		readings, err := c.Readings(ctx)
		if err != nil {
			return nil, err
		}
		if err := readings.EnsureTable(ctx); err != nil {
			return nil, err
		}
		target = readings
	case SinkMQTT:
		publisher, err := c.Publisher()
		if err != nil {
			return nil, err
		}
		target = publisher
	default:
		return nil, fmt.Errorf("unknown simulator sink %q", sink)
	}

	cfg := simulator.Config{
		Interval: c.cfg.Simulator.Interval,
		Count:    c.cfg.Simulator.Count,
	}
	return simulator.New(c.codec, target, cfg, c.logger), nil
}

// Close releases the store and broker and flushes the logger
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.broker != nil {
		c.broker.Disconnect()
		c.broker = nil
	}
	if c.store != nil {
		err = c.store.Close()
		c.store = nil
	}
	_ = c.logger.Sync()
	return err
}

// OpenStore opens the table store for cfg.Backend
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (table.Store, error) {
	switch cfg.Backend {
	case config.BackendPebble:
		return pebblestore.Open(pebblestore.Config{
			DataDir:  cfg.Pebble.DataDir,
			InMemory: cfg.Pebble.InMemory,
			Sync:     cfg.Pebble.Sync,
		}, logger)
	case config.BackendDynamo:
		return dynamo.New(ctx, dynamo.Config{
			Region:        cfg.Dynamo.Region,
			Endpoint:      cfg.Dynamo.Endpoint,
			WaitForActive: cfg.Dynamo.WaitForActive,
		}, logger)
	case config.BackendRedis:
		return redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// ConnectBroker connects to the configured MQTT broker
func ConnectBroker(cfg config.MQTT, logger *zap.Logger) (ingest.Broker, error) {
	return ingest.NewClient(ingest.ClientConfig{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
	}, logger)
}

// ResolveAPIKey turns the configured key into the one the server enforces
func ResolveAPIKey(configured string, logger *zap.Logger) (string, error) {
	if configured != "auto" {
		return configured, nil
	}
	key, err := config.GenerateSecureKey(32)
	if err != nil {
		return "", err
	}
	logger.Warn("generated an API key for this process; set server.api_key to keep it stable",
		zap.String("api_key", key))
	return key, nil
}
