// Package auth gates the gateway's endpoints. Ingestion authenticates with
// the study password carried in the AWARE client URL; the read path uses
// opaque bearer tokens issued by Login and stored in Redis under
// "gateway:token:{token}" with a TTL, so expiry is enforced by Redis itself.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/polalpha/aware-gateway/internal/gateway"
	"github.com/polalpha/aware-gateway/internal/stats"
)

const tokenPrefix = "gateway:token:"

// Service issues and validates access tokens.
type Service struct {
	rdb           *redis.Client
	studyPassword string
	ttl           time.Duration
}

// New creates a Service. ttl is how long an issued token lives.
func New(rdb *redis.Client, studyPassword string, ttl time.Duration) *Service {
	return &Service{rdb: rdb, studyPassword: studyPassword, ttl: ttl}
}

// Token is returned by Login.
type Token struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// Login checks the study password and issues a fresh bearer token. A wrong
// password increments the accumulator's unauthorized counter — the engines
// themselves never touch it.
func (s *Service) Login(ctx context.Context, password string, st *stats.Stats) (*Token, error) {
	if !s.CheckPassword(password, st) {
		return nil, gateway.Authf("invalid credentials")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, gateway.ExecutionWrap(err, "generate token")
	}
	token := hex.EncodeToString(raw)

	if err := s.rdb.Set(ctx, tokenPrefix+token, time.Now().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		return nil, gateway.ExecutionWrap(err, "store token")
	}

	log.Info().Msg("successful login")
	return &Token{Token: token, ExpiresIn: int(s.ttl.Seconds())}, nil
}

// Validate checks an Authorization header value. Expired tokens are gone
// from Redis, so expiry and revocation are the same lookup.
func (s *Service) Validate(ctx context.Context, authorization string, st *stats.Stats) error {
	token := strings.TrimPrefix(authorization, "Bearer ")
	if token == "" {
		st.Unauthorized()
		return gateway.Authf("missing token")
	}

	_, err := s.rdb.Get(ctx, tokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		st.Unauthorized()
		log.Warn().Msg("rejected invalid or expired token")
		return gateway.Authf("invalid token")
	}
	if err != nil {
		return gateway.ExecutionWrap(err, "token lookup failed")
	}
	return nil
}

// CheckPassword compares a caller-supplied study password in constant time.
// A mismatch counts as an unauthorized attempt.
func (s *Service) CheckPassword(password string, st *stats.Stats) bool {
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.studyPassword)) == 1 {
		return true
	}
	st.Unauthorized()
	return false
}
