package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apierrors "github.com/feral-file/ff-drug-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/walletauth"
)

var testNow = time.Unix(1_750_000_000, 0)

func generateRSAKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	return key, string(pemBytes)
}

func signJWT(t *testing.T, key *rsa.PrivateKey, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	rsaKey, publicPEM := generateRSAKey(t)
	otherKey, _ := generateRSAKey(t)
	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	walletAddress := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	cfg := AuthConfig{
		JWTPublicKey:  publicPEM,
		WalletMaxSkew: time.Minute,
		Now:           func() time.Time { return testNow },
	}

	validToken := signJWT(t, rsaKey, jwt.RegisteredClaims{
		Subject:   "pharma-co",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	})
	expiredToken := signJWT(t, rsaKey, jwt.RegisteredClaims{
		Subject:   "pharma-co",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(-time.Hour)),
	})
	noSubjectToken := signJWT(t, rsaKey, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	})
	foreignToken := signJWT(t, otherKey, jwt.RegisteredClaims{Subject: "pharma-co"})
	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "pharma-co"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	walletHeader, err := walletauth.Header(walletKey, testNow.Unix())
	require.NoError(t, err)
	staleWalletHeader, err := walletauth.Header(walletKey, testNow.Add(-time.Hour).Unix())
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		cfg       AuthConfig
		wantOK    bool
		wantType  string
		wantOwner string
	}{
		{name: "bearer", header: "Bearer " + validToken, cfg: cfg, wantOK: true, wantType: AuthTypeJWT, wantOwner: "pharma-co"},
		{name: "bearer scheme is case insensitive", header: "bearer " + validToken, cfg: cfg, wantOK: true, wantType: AuthTypeJWT, wantOwner: "pharma-co"},
		{name: "wallet", header: walletHeader, cfg: cfg, wantOK: true, wantType: AuthTypeWallet, wantOwner: walletAddress},
		{name: "missing header", header: "", cfg: cfg},
		{name: "no credentials", header: "Bearer", cfg: cfg},
		{name: "unsupported scheme", header: "Basic dXNlcjpwYXNz", cfg: cfg},
		{name: "expired token", header: "Bearer " + expiredToken, cfg: cfg},
		{name: "token without subject", header: "Bearer " + noSubjectToken, cfg: cfg},
		{name: "token from another key", header: "Bearer " + foreignToken, cfg: cfg},
		{name: "hmac token", header: "Bearer " + hmacToken, cfg: cfg},
		{name: "public key not configured", header: "Bearer " + validToken, cfg: AuthConfig{Now: cfg.Now}},
		{name: "stale wallet signature", header: staleWalletHeader, cfg: cfg},
		{name: "garbage wallet credentials", header: "Wallet nope", cfg: cfg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Authenticate(tt.header, tt.cfg)
			assert.Equal(t, tt.wantOK, result.Success)
			if !tt.wantOK {
				assert.Error(t, result.Error)
				return
			}
			require.NoError(t, result.Error)
			assert.Equal(t, tt.wantType, result.AuthType)
			assert.Equal(t, tt.wantOwner, result.Owner)
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg := AuthConfig{WalletMaxSkew: time.Minute, Now: func() time.Time { return testNow }}

	router := gin.New()
	router.POST("/protected", Auth(cfg), func(c *gin.Context) {
		owner, ok := Owner(c)
		require.True(t, ok)
		c.String(http.StatusOK, owner)
	})

	t.Run("authenticated", func(t *testing.T) {
		header, err := walletauth.Header(walletKey, testNow.Unix())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, crypto.PubkeyToAddress(walletKey.PublicKey).Hex(), rec.Body.String())
	})

	t.Run("rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/protected", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body apierrors.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apierrors.ErrCodeUnauthorized, body.Error.Code)
		assert.Equal(t, "missing Authorization header", body.Error.Details)
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(REQUEST_ID_KEY))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get(REQUEST_ID_HEADER)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(REQUEST_ID_HEADER, "6f1c2a8e-2b1d-4d8e-9a57-1f3f0b2c9d10")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "6f1c2a8e-2b1d-4d8e-9a57-1f3f0b2c9d10", rec.Header().Get(REQUEST_ID_HEADER))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(REQUEST_ID_HEADER, "not-a-uuid")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(REQUEST_ID_HEADER))
}

func TestRequestID_TagsRequestLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		logger.InfoCtx(c.Request.Context(), "handling")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(REQUEST_ID_HEADER, "6f1c2a8e-2b1d-4d8e-9a57-1f3f0b2c9d10")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("handling").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "6f1c2a8e-2b1d-4d8e-9a57-1f3f0b2c9d10", entries[0].ContextMap()[REQUEST_ID_KEY])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierrors.ErrCodeInternalError, body.Error.Code)
}
