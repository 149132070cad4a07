package mocks_test

import (
	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/auditor"
	"github.com/feral-file/ff-drug-registry/internal/messaging"
	"github.com/feral-file/ff-drug-registry/internal/mocks"
	"github.com/feral-file/ff-drug-registry/internal/notifier"
	"github.com/feral-file/ff-drug-registry/internal/ratelimit"
	"github.com/feral-file/ff-drug-registry/internal/registry"
	"github.com/feral-file/ff-drug-registry/internal/store"
)

// Every generated mock must keep satisfying the interface it was generated from.
var (
	_ adapter.Clock          = (*mocks.MockClock)(nil)
	_ adapter.JSON           = (*mocks.MockJSON)(nil)
	_ adapter.JCS            = (*mocks.MockJCS)(nil)
	_ adapter.HTTPClient     = (*mocks.MockHTTPClient)(nil)
	_ adapter.NatsConn       = (*mocks.MockNatsConn)(nil)
	_ adapter.JetStream      = (*mocks.MockJetStream)(nil)
	_ adapter.Consumer       = (*mocks.MockNatsConsumer)(nil)
	_ adapter.ConsumeContext = (*mocks.MockConsumeContext)(nil)
	_ adapter.Message        = (*mocks.MockJetStreamMessage)(nil)
	_ adapter.NatsJetStream  = (*mocks.MockNatsJetStream)(nil)

	_ store.Store          = (*mocks.MockStore)(nil)
	_ store.Sealer         = (*mocks.MockSealer)(nil)
	_ registry.Registry    = (*mocks.MockRegistry)(nil)
	_ registry.Notifier    = (*mocks.MockNotifier)(nil)
	_ messaging.Publisher  = (*mocks.MockPublisher)(nil)
	_ messaging.Subscriber = (*mocks.MockSubscriber)(nil)
	_ notifier.Sink        = (*mocks.MockSink)(nil)
	_ auditor.EventSource  = (*mocks.MockEventSource)(nil)
	_ ratelimit.Limiter    = (*mocks.MockLimiter)(nil)
)
