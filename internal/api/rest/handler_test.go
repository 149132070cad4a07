package rest_test

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-drug-registry/internal/adapter"
	"github.com/feral-file/ff-drug-registry/internal/api/middleware"
	"github.com/feral-file/ff-drug-registry/internal/api/rest"
	"github.com/feral-file/ff-drug-registry/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-drug-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-drug-registry/internal/domain"
	"github.com/feral-file/ff-drug-registry/internal/ledger"
	"github.com/feral-file/ff-drug-registry/internal/metrics"
	"github.com/feral-file/ff-drug-registry/internal/mocks"
	"github.com/feral-file/ff-drug-registry/internal/notifier"
	"github.com/feral-file/ff-drug-registry/internal/pubsub"
	"github.com/feral-file/ff-drug-registry/internal/registry"
	"github.com/feral-file/ff-drug-registry/internal/store"
	"github.com/feral-file/ff-drug-registry/internal/walletauth"
)

var testNow = time.Unix(1_750_000_000, 0)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time                         { return c.now }
func (c fixedClock) Since(t time.Time) time.Duration        { return c.now.Sub(t) }
func (c fixedClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type apiFixture struct {
	router     *gin.Engine
	broker     *pubsub.Broker[domain.RegistrationEvent]
	dispatcher *notifier.Dispatcher
	key        *ecdsa.PrivateKey
	owner      string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := fixedClock{now: testNow}
	m := metrics.New()
	l := ledger.New(adapter.NewJSON(), adapter.NewJCS())
	broker := pubsub.NewBroker[domain.RegistrationEvent]()
	dispatcher := notifier.New([]notifier.Sink{notifier.NewBrokerSink(broker)}, 16, m)
	dispatcher.Start(context.Background())
	reg := registry.New(store.NewMemoryStore(l), l, dispatcher, clock, m)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	router := gin.New()
	rest.SetupRoutes(router,
		rest.NewHandler(reg, broker, clock, 20*time.Millisecond),
		middleware.AuthConfig{WalletMaxSkew: time.Minute, Now: clock.Now},
		m.Handler())

	t.Cleanup(func() {
		_ = dispatcher.Close(context.Background())
		broker.Close()
	})

	return &apiFixture{
		router:     router,
		broker:     broker,
		dispatcher: dispatcher,
		key:        key,
		owner:      crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		header, err := walletauth.Header(f.key, testNow.Unix())
		require.NoError(t, err)
		req.Header.Set("Authorization", header)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, req dto.RegisterDrugRequest) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, http.MethodPost, "/api/v1/drugs", req, true)
}

func drugRequest(id string) dto.RegisterDrugRequest {
	return dto.RegisterDrugRequest{
		ID:                   id,
		Name:                 "Paracetamol 500mg",
		BatchNumber:          "LOT2024001",
		ManufactureTimestamp: testNow.Unix() - 86400,
		ExpiryTimestamp:      testNow.Unix() + 31536000,
		Details: domain.DrugDetails{
			ActiveIngredient: "Paracetamol",
			Quantity:         100,
		},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRegisterDrug(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.register(t, drugRequest("DRUG001"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "DRUG001", decode[dto.RegisterDrugResponse](t, rec).ID)

	rec = f.do(t, http.MethodGet, "/api/v1/drugs/DRUG001", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	drug := decode[dto.DrugResponse](t, rec)
	assert.Equal(t, "Paracetamol 500mg", drug.Name)
	assert.Equal(t, domain.Owner(f.owner), drug.Owner)
	assert.Equal(t, uint64(100), drug.Details.Quantity)
	assert.False(t, drug.Expired)

	t.Run("duplicate id", func(t *testing.T) {
		dup := drugRequest("DRUG001")
		dup.Name = "Other"
		rec := f.register(t, dup)
		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decode[apierrors.ErrorResponse](t, rec)
		assert.Equal(t, apierrors.ErrCodeConflict, body.Error.Code)
		assert.Equal(t, "id already registered", body.Error.Details)
	})

	t.Run("validation failure", func(t *testing.T) {
		bad := drugRequest("DRUG002")
		bad.ManufactureTimestamp = testNow.Unix() + 86400
		bad.ExpiryTimestamp = testNow.Unix() + 200000
		rec := f.register(t, bad)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode[apierrors.ErrorResponse](t, rec)
		assert.Equal(t, apierrors.ErrCodeValidationFailed, body.Error.Code)
		assert.Equal(t, "manufacture date in future", body.Error.Details)
	})

	t.Run("missing name", func(t *testing.T) {
		bad := drugRequest("DRUG002")
		bad.Name = ""
		rec := f.register(t, bad)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "name required", decode[apierrors.ErrorResponse](t, rec).Error.Details)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/drugs", `{"id": 7`, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apierrors.ErrCodeBadRequest, decode[apierrors.ErrorResponse](t, rec).Error.Code)
	})

	t.Run("owner in body is ignored", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/drugs",
			`{"id":"DRUG009","name":"X","batch_number":"L","manufacture_timestamp":1,"expiry_timestamp":2,"owner":"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"}`, true)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodGet, "/api/v1/drugs/DRUG009", nil, false)
		assert.Equal(t, domain.Owner(f.owner), decode[dto.DrugResponse](t, rec).Owner)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/drugs", drugRequest("DRUG003"), false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDrugQueries(t *testing.T) {
	f := newAPIFixture(t)

	expired := drugRequest("DRUG003")
	expired.ManufactureTimestamp = testNow.Unix() - 200000
	expired.ExpiryTimestamp = testNow.Unix() - 86400
	require.Equal(t, http.StatusCreated, f.register(t, drugRequest("DRUG001")).Code)
	require.Equal(t, http.StatusCreated, f.register(t, expired).Code)

	rec := f.do(t, http.MethodGet, "/api/v1/drugs/DRUG001/exists", nil, false)
	assert.Equal(t, dto.ExistsResponse{ID: "DRUG001", Exists: true}, decode[dto.ExistsResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/drugs/UNKNOWN/exists", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[dto.ExistsResponse](t, rec).Exists)

	rec = f.do(t, http.MethodGet, "/api/v1/drugs/DRUG001/expired", nil, false)
	assert.Equal(t, dto.ExpiredResponse{ID: "DRUG001", Expired: false, CheckedAt: testNow.Unix()}, decode[dto.ExpiredResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/drugs/DRUG003/expired", nil, false)
	assert.True(t, decode[dto.ExpiredResponse](t, rec).Expired)

	for _, path := range []string{"/api/v1/drugs/UNKNOWN", "/api/v1/drugs/UNKNOWN/expired"} {
		rec = f.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, apierrors.ErrCodeNotFound, decode[apierrors.ErrorResponse](t, rec).Error.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/v1/owners/"+strings.ToLower(f.owner)+"/drugs", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.OwnerDrugsResponse{Owner: f.owner, IDs: []string{"DRUG001", "DRUG003"}, Count: 2},
		decode[dto.OwnerDrugsResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/owners/0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359/drugs", nil, false)
	list := decode[dto.OwnerDrugsResponse](t, rec)
	assert.NotNil(t, list.IDs)
	assert.Empty(t, list.IDs)

	rec = f.do(t, http.MethodGet, "/api/v1/owners/"+f.owner+"/drugs/count", nil, false)
	assert.Equal(t, uint64(2), decode[dto.OwnerCountResponse](t, rec).Count)

	rec = f.do(t, http.MethodGet, "/api/v1/stats", nil, false)
	assert.Equal(t, uint64(2), decode[dto.StatsResponse](t, rec).Total)
}

func TestDrugQueries_EscapedIdentifiers(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.register(t, drugRequest("LOT/2024/001"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "LOT/2024/001", decode[dto.RegisterDrugResponse](t, rec).ID)

	escaped := url.PathEscape("LOT/2024/001")

	rec = f.do(t, http.MethodGet, "/api/v1/drugs/"+escaped, nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "LOT/2024/001", decode[dto.DrugResponse](t, rec).ID)

	rec = f.do(t, http.MethodGet, "/api/v1/drugs/"+escaped+"/exists", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, dto.ExistsResponse{ID: "LOT/2024/001", Exists: true}, decode[dto.ExistsResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/drugs/"+escaped+"/expired", nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[dto.ExpiredResponse](t, rec).Expired)

	t.Run("unknown id with slash", func(t *testing.T) {
		missing := url.PathEscape("LOT/2024/999")

		rec := f.do(t, http.MethodGet, "/api/v1/drugs/"+missing+"/exists", nil, false)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode[dto.ExistsResponse](t, rec).Exists)

		for _, path := range []string{"/api/v1/drugs/" + missing, "/api/v1/drugs/" + missing + "/expired"} {
			rec = f.do(t, http.MethodGet, path, nil, false)
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
			assert.Equal(t, apierrors.ErrCodeNotFound, decode[apierrors.ErrorResponse](t, rec).Error.Code)
		}
	})

	t.Run("owner with slash", func(t *testing.T) {
		owner := url.PathEscape("acme/labs")

		rec := f.do(t, http.MethodGet, "/api/v1/owners/"+owner+"/drugs", nil, false)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		list := decode[dto.OwnerDrugsResponse](t, rec)
		assert.Equal(t, "acme/labs", list.Owner)
		assert.Empty(t, list.IDs)

		rec = f.do(t, http.MethodGet, "/api/v1/owners/"+owner+"/drugs/count", nil, false)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, uint64(0), decode[dto.OwnerCountResponse](t, rec).Count)
	})
}

func TestEventsAndLedger(t *testing.T) {
	f := newAPIFixture(t)
	for i := 1; i <= 5; i++ {
		require.Equal(t, http.StatusCreated, f.register(t, drugRequest(fmt.Sprintf("D%d", i))).Code)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/events?anchor=1&limit=2", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[dto.EventsResponse](t, rec)
	require.Len(t, page.Events, 2)
	assert.Equal(t, "D2", page.Events[0].DrugID)
	assert.Equal(t, uint64(3), page.NextAnchor)

	rec = f.do(t, http.MethodGet, "/api/v1/events?anchor=5", nil, false)
	page = decode[dto.EventsResponse](t, rec)
	assert.Empty(t, page.Events)
	assert.Equal(t, uint64(5), page.NextAnchor)

	rec = f.do(t, http.MethodGet, "/api/v1/events?anchor=-1", nil, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/ledger/verify", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[registry.LedgerReport](t, rec)
	assert.True(t, report.Valid)
	assert.Equal(t, uint64(5), report.Events)
	assert.Equal(t, uint64(5), report.HeadSequence)
}

func TestStreamEvents(t *testing.T) {
	f := newAPIFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// wait for the subscription before registering
	require.Eventually(t, func() bool { return f.broker.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, http.StatusCreated, f.register(t, drugRequest("LIVE1")).Code)

	scanner := bufio.NewScanner(resp.Body)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
		if strings.HasPrefix(line, "data:") && event == domain.EventTypeDrugRegistered {
			var ev domain.RegistrationEvent
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &ev))
			assert.Equal(t, "LIVE1", ev.DrugID)
			assert.Equal(t, uint64(1), ev.Sequence)
			return
		}
	}
	t.Fatalf("stream ended without a registration event: %v", scanner.Err())
}

func TestInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := mocks.NewMockRegistry(ctrl)
	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(reg, pubsub.NewBroker[domain.RegistrationEvent](), fixedClock{now: testNow}, 0),
		middleware.AuthConfig{}, nil)

	reg.EXPECT().Total(gomock.Any()).Return(uint64(0), errors.New("connection reset"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[apierrors.ErrorResponse](t, rec)
	assert.Equal(t, apierrors.ErrCodeInternalError, body.Error.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated, f.register(t, drugRequest("D1")).Code)

	rec := f.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, dto.HealthResponse{Status: "ok", Service: "drug-registry"}, decode[dto.HealthResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/metrics", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `drug_registry_registrations_total{outcome="registered"} 1`)
	assert.Contains(t, rec.Body.String(), "drug_registry_records 1")
}
