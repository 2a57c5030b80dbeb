package stubgateway

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/sportstix-client/internal/model"
)

// accessTTL is deliberately short so refresh paths get exercised without
// tests having to forge expiry.
const accessTTL = 15 * time.Minute

func mustJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return buf
}

func (s *Server) handleSignup(c echo.Context) error {
	var req model.SignupRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		return fail(c, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		s.mu.Unlock()
		return fail(c, http.StatusInternalServerError, "INTERNAL", "hashing failed")
	}
	s.nextUserID++
	u := &stubUser{id: s.nextUserID, email: req.Email, name: req.Name, role: "USER", passwordHash: hash}
	s.users[req.Email] = u
	s.mu.Unlock()
	return s.issueTokens(c, u)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	s.mu.Lock()
	u := s.users[req.Email]
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		return fail(c, http.StatusUnauthorized, "BAD_CREDENTIALS", "invalid email or password")
	}
	return s.issueTokens(c, u)
}

func (s *Server) handleRefresh(c echo.Context) error {
	var req model.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
	}
	s.mu.Lock()
	uid, found := s.refreshTokens[req.RefreshToken]
	if found {
		// Rotation: a presented refresh token is single-use.
		delete(s.refreshTokens, req.RefreshToken)
	}
	var u *stubUser
	for _, cand := range s.users {
		if cand.id == uid {
			u = cand
			break
		}
	}
	s.mu.Unlock()
	if !found || u == nil {
		return fail(c, http.StatusUnauthorized, "REFRESH_INVALID", "refresh token not recognized")
	}
	return s.issueTokens(c, u)
}

// issueTokens signs a fresh access token and mints a rotated refresh token.
func (s *Server) issueTokens(c echo.Context, u *stubUser) error {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   u.id,
		"email": u.email,
		"name":  u.name,
		"role":  u.role,
		"exp":   now.Add(accessTTL).Unix(),
		"iat":   now.Unix(),
	}
	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL", "token signing failed")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL", "token generation failed")
	}
	refresh := hex.EncodeToString(buf)
	s.mu.Lock()
	s.refreshTokens[refresh] = u.id
	s.mu.Unlock()
	return ok(c, model.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer", ExpiresIn: int(accessTTL.Seconds())})
}

// jwtMiddleware validates the bearer token and stashes the subject in the
// context, mirroring the production gateway's behavior including 401s for
// anything malformed or expired.
func (s *Server) jwtMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			}
			raw := strings.TrimPrefix(authz, "Bearer ")
			s.mu.Lock()
			secret := s.secret
			s.mu.Unlock()
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return secret, nil
			})
			if err != nil || !tok.Valid {
				return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid claims")
			}
			sub, _ := claims["sub"].(float64)
			c.Set("user_id", uint64(sub))
			return next(c)
		}
	}
}

func userID(c echo.Context) uint64 {
	id, _ := c.Get("user_id").(uint64)
	return id
}

// RevokeAccess invalidates every outstanding access token by rotating the
// signing secret. Test hook for forcing 401s on previously valid tokens.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = append([]byte{}, s.secret...)
	s.secret[0] ^= 0xff
}
