package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-drug-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/walletauth"
)

const (
	AUTH_TYPE_KEY  = "auth_type"
	AUTH_OWNER_KEY = "auth_owner"
	JWT_CLAIMS_KEY = "jwt_claims"
)

const (
	AuthTypeJWT    = "jwt"
	AuthTypeWallet = "wallet"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey  string // RSA public key in PEM format
	WalletMaxSkew time.Duration
	// Now overrides the clock used for token and signature windows
	Now func() time.Time
}

func (c AuthConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success  bool
	AuthType string
	Claims   *jwt.RegisteredClaims
	Owner    string
	Error    error
}

// authenticator resolves owners from Authorization headers. The JWT public
// key is parsed once; a bad key fails every bearer request rather than startup
// so wallet auth keeps working.
type authenticator struct {
	cfg    AuthConfig
	jwtKey *rsa.PublicKey
	keyErr error
}

func newAuthenticator(cfg AuthConfig) *authenticator {
	a := &authenticator{cfg: cfg}
	switch {
	case cfg.JWTPublicKey == "":
		a.keyErr = errors.New("JWT public key not configured")
	default:
		a.jwtKey, a.keyErr = parseRSAPublicKey(cfg.JWTPublicKey)
		if a.keyErr != nil {
			a.keyErr = fmt.Errorf("failed to parse RSA public key: %w", a.keyErr)
		}
	}
	return a
}

// Authenticate validates the Authorization header and resolves the calling owner.
// Bearer tokens yield their subject; wallet signatures yield the signing address.
func Authenticate(authHeader string, cfg AuthConfig) AuthResult {
	return newAuthenticator(cfg).authenticate(authHeader)
}

func (a *authenticator) authenticate(authHeader string) AuthResult {
	if authHeader == "" {
		return AuthResult{Error: errors.New("missing Authorization header")}
	}

	scheme, credentials, ok := strings.Cut(authHeader, " ")
	credentials = strings.TrimSpace(credentials)
	if !ok || credentials == "" {
		return AuthResult{Error: errors.New("invalid Authorization header format")}
	}

	switch strings.ToLower(scheme) {
	case "bearer":
		claims, err := a.validateJWT(credentials)
		if err != nil {
			return AuthResult{Error: err}
		}
		if claims.Subject == "" {
			return AuthResult{Error: errors.New("token has no subject")}
		}
		return AuthResult{Success: true, AuthType: AuthTypeJWT, Claims: claims, Owner: claims.Subject}

	case strings.ToLower(walletauth.Scheme):
		address, err := walletauth.Verify(credentials, a.cfg.now(), a.cfg.WalletMaxSkew)
		if err != nil {
			return AuthResult{Error: err}
		}
		return AuthResult{Success: true, AuthType: AuthTypeWallet, Owner: address.Hex()}

	default:
		return AuthResult{Error: fmt.Errorf("unsupported authorization type: %s", strings.ToLower(scheme))}
	}
}

// Auth returns a gin middleware that requires an authenticated owner. The
// owner is also attached to the request context so later log lines carry it.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	a := newAuthenticator(cfg)
	if cfg.JWTPublicKey != "" && a.keyErr != nil {
		logger.Warn("Bearer authentication disabled", zap.Error(a.keyErr))
	}

	return func(c *gin.Context) {
		result := a.authenticate(c.GetHeader("Authorization"))

		if !result.Success {
			logger.WarnCtx(c.Request.Context(), "Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierrors.ErrorResponse{
				Error: apierrors.NewUnauthorizedError("Authentication failed", result.Error.Error()),
			})
			return
		}

		c.Set(AUTH_TYPE_KEY, result.AuthType)
		c.Set(AUTH_OWNER_KEY, result.Owner)
		if result.Claims != nil {
			c.Set(JWT_CLAIMS_KEY, result.Claims)
		}
		c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(),
			zap.String("owner", result.Owner),
			zap.String("auth_type", result.AuthType)))

		c.Next()
	}
}

// Owner returns the authenticated owner set by Auth
func Owner(c *gin.Context) (string, bool) {
	owner := c.GetString(AUTH_OWNER_KEY)
	return owner, owner != ""
}

// validateJWT checks an RS256 token against the configured key at the configured time
func (a *authenticator) validateJWT(tokenString string) (*jwt.RegisteredClaims, error) {
	if a.keyErr != nil {
		return nil, a.keyErr
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.jwtKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg()}),
		jwt.WithTimeFunc(a.cfg.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}

	return rsaKey, nil
}
