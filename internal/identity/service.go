package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/helmdeck/helmdeck/internal/shared"
)

// Repository defines persistence for the session registry.
type Repository interface {
	CreateSession(ctx context.Context, rec SessionRecord) error
	DeleteSession(ctx context.Context, id string) error
}

// Service verifies provider-issued material: the webhook bearer token and
// per-login identity assertions.
type Service struct {
	repo             Repository
	assertionSecret  []byte
	webhookTokenHash []byte
}

// NewService constructs a Service. webhookTokenHash is the bcrypt hash of
// the provider's webhook bearer token; assertionSecret is the shared HMAC
// key for login assertions.
func NewService(repo Repository, assertionSecret, webhookTokenHash string) *Service {
	return &Service{
		repo:             repo,
		assertionSecret:  []byte(assertionSecret),
		webhookTokenHash: []byte(webhookTokenHash),
	}
}

// VerifyWebhookToken checks the bearer token presented by the provider.
func (s *Service) VerifyWebhookToken(token string) error {
	if token == "" {
		return shared.ErrInvalidAssertion
	}
	if err := bcrypt.CompareHashAndPassword(s.webhookTokenHash, []byte(token)); err != nil {
		return shared.ErrInvalidAssertion
	}
	return nil
}

// VerifyAssertion checks the provider's HMAC-SHA256 signature over the
// identity ID. The signature is hex encoded.
func (s *Service) VerifyAssertion(id uuid.UUID, signature string) error {
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return shared.ErrInvalidAssertion
	}
	mac := hmac.New(sha256.New, s.assertionSecret)
	_, _ = mac.Write([]byte(id.String()))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return shared.ErrInvalidAssertion
	}
	return nil
}

// SignAssertion produces the signature VerifyAssertion expects. Exported for
// provider-side tooling and tests.
func (s *Service) SignAssertion(id uuid.UUID) string {
	mac := hmac.New(sha256.New, s.assertionSecret)
	_, _ = mac.Write([]byte(id.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// RegisterSession stores the session registry row.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, SessionRecord{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
		IP:        ip,
		UA:        ua,
	})
}

// RemoveSession deletes the session registry row.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
