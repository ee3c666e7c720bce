// Package verification issues and checks the six digit codes that confirm
// an email address after sign up.
package verification

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/miroir/internal/client/docstore"
	"github.com/dmitrijs2005/miroir/internal/client/mailer"
	"github.com/dmitrijs2005/miroir/internal/common"
	"github.com/dmitrijs2005/miroir/internal/cryptox"
	"github.com/dmitrijs2005/miroir/internal/logging"
)

// Collection holds one code record per email address.
const Collection = "codes"

// DefaultTTL bounds how long a code can be used.
const DefaultTTL = 15 * time.Minute

// Codes are stored as salted digests, never in clear.
type record struct {
	Hash      string    `json:"hash"`
	Salt      string    `json:"salt"`
	CreatedAt time.Time `json:"createdAt"`
	Used      bool      `json:"used"`
}

// generateCode is swapped in tests.
var generateCode = cryptox.GenerateCode

type Service struct {
	docs       docstore.Store
	mail       mailer.Sender
	templateID string
	ttl        time.Duration
	now        func() time.Time
	logger     logging.Logger
}

func NewService(docs docstore.Store, mail mailer.Sender, templateID string, ttl time.Duration, logger logging.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		docs:       docs,
		mail:       mail,
		templateID: templateID,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

// Send issues a fresh code for email, replacing any previous one, and mails it.
// A storage failure wraps common.ErrStorage; a mail failure wraps
// common.ErrDelivery and leaves the stored code usable for a resend.
func (s *Service) Send(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	verifier, salt := cryptox.HashCode(code)

	doc, err := docstore.Encode(record{
		Hash:      hex.EncodeToString(verifier),
		Salt:      hex.EncodeToString(salt),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.docs.Put(ctx, Collection, email, doc); err != nil {
		return fmt.Errorf("%w: store verification code: %w", common.ErrStorage, err)
	}

	err = s.mail.Send(ctx, s.templateID, email, map[string]string{
		"to_email":          email,
		"user_email":        email,
		"verification_code": code,
	})
	if err != nil {
		s.logger.Warn(ctx, "verification email not delivered", "email", email, "error", err)
		if !errors.Is(err, common.ErrDelivery) {
			err = fmt.Errorf("%w: %w", common.ErrDelivery, err)
		}
		return err
	}

	s.logger.Info(ctx, "verification code sent", "email", email)
	return nil
}

// Verify reports whether code is the live code for email. A matching code
// is consumed. Unknown, expired or used codes verify false without error.
func (s *Service) Verify(ctx context.Context, email, code string) (bool, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || !cryptox.IsCode(code) {
		return false, fmt.Errorf("%w: the code has %d digits", common.ErrValidation, cryptox.CodeLength)
	}

	doc, err := s.docs.Get(ctx, Collection, email)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: load verification code: %w", common.ErrStorage, err)
	}

	var rec record
	if err := docstore.Decode(doc, &rec); err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	if rec.Used || s.now().Sub(rec.CreatedAt) > s.ttl {
		return false, nil
	}

	verifier, err1 := hex.DecodeString(rec.Hash)
	salt, err2 := hex.DecodeString(rec.Salt)
	if err := errors.Join(err1, err2); err != nil {
		return false, fmt.Errorf("%w: corrupt verification record: %w", common.ErrStorage, err)
	}
	if !cryptox.CheckCode(code, salt, verifier) {
		return false, nil
	}

	if err := s.docs.Update(ctx, Collection, email, map[string]any{"used": true}); err != nil {
		return false, fmt.Errorf("%w: consume verification code: %w", common.ErrStorage, err)
	}
	return true, nil
}
