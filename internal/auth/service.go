// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skycast/skycast/internal/observability"
	"github.com/skycast/skycast/pkg/errutil"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// emailSendTimeout bounds the outbound email call so a slow SMTP server
// cannot pin goroutines indefinitely.
const emailSendTimeout = 30 * time.Second

// Mailer delivers transactional email. Failures are the caller's to log;
// they must never fail the triggering flow.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Service implements the account flows: register, login, password reset,
// and email verification.
type Service struct {
	users   UserRepository
	hasher  PasswordHasher
	tokens  *Tokens
	mailer  Mailer
	baseURL string
	logger  *slog.Logger
}

// NewService creates a Service. baseURL is the externally visible URL
// used to build links embedded in emails.
func NewService(users UserRepository, hasher PasswordHasher, tokens *Tokens, mailer Mailer, baseURL string, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token service is required")
	}
	if mailer == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("mailer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a new unverified account and sends a verification
// email. It does not log the user in; verification is a separate step.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, oops.Code("AUTH_VALIDATION").Errorf("all fields are required")
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in.Email, in.FirstName, in.LastName, hash)
	if err != nil {
		return nil, err
	}

	// The store's uniqueness constraint serializes concurrent
	// registrations for the same email; no pre-check here.
	if err := s.users.Create(ctx, user); err != nil {
		if IsEmailTaken(err) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	token, err := s.tokens.Issue(user.ID.String(), PurposeVerify)
	if err != nil {
		// The account exists; verification can be re-requested later.
		errutil.LogError(s.logger, "failed to issue verification token", err)
		return user, nil
	}
	subject, body := verificationEmail(user.FirstName, s.baseURL+"/auth/verify?token="+token)
	s.sendAsync("verification", user.Email, subject, body)

	return user, nil
}

// Login authenticates by email and password and returns the user with a
// freshly issued session token. All failure modes produce the same
// generic error to prevent email enumeration. Uses constant-time
// operations so lookup misses are indistinguishable from bad passwords.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, "", invalidCredentials()
	}

	user, lookupErr := s.users.GetByEmail(ctx, normalized)

	// Determine which hash to verify against (real or dummy for timing
	// attack prevention).
	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !IsNotFound(lookupErr) {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else if user.HasPassword() {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify (constant-time operation for timing attack prevention).
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, "", invalidCredentials()
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		if userExists {
			user.RecordFailure()
			_ = s.users.Update(ctx, user) //nolint:errcheck // Best effort
		}
		return nil, "", invalidCredentials()
	}

	// Check lockout AFTER password verification to maintain constant time.
	if user.IsLocked() {
		return nil, "", oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", user.LockedUntil).
			Errorf("account is temporarily locked")
	}

	user.RecordSuccess()

	// Opportunistic upgrade of legacy bcrypt hashes.
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			user.PasswordHash = newHash
		}
	}
	_ = s.users.Update(ctx, user) //nolint:errcheck // Best effort, login succeeds regardless

	token, err := s.tokens.Issue(user.ID.String(), PurposeSession)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session token").
			Wrap(err)
	}

	return user, token, nil
}

// RequestPasswordReset issues a reset token and emails it to the user.
// An unknown email is reported as success and sends nothing, so the
// response never reveals whether an address is registered. The reset
// link travels only via the mailer, never in the response.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := s.tokens.Issue(user.ID.String(), PurposeReset)
	if err != nil {
		return oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "issue reset token").
			Wrap(err)
	}
	subject, body := resetEmail(user.FirstName, s.baseURL+"/auth/reset?token="+token)
	s.sendAsync("reset", user.Email, subject, body)

	return nil
}

// ResetPassword sets a new password using a valid reset token. It also
// marks the email verified: completing a reset proves control of the
// mailbox, which is exactly what verification establishes. That dual
// effect is a deliberate contract of this flow.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	subject, err := s.tokens.Verify(token, PurposeReset)
	if err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.lookupSubject(ctx, subject)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_RESET_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return oops.Code("AUTH_RESET_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID, time.Now()); err != nil {
		// The password was updated; verification bookkeeping must not
		// undo that from the caller's perspective.
		errutil.LogError(s.logger, "failed to mark email verified after reset", err)
	}

	return nil
}

// VerifyEmail marks the token's subject as verified. Verifying an
// already-verified account is a no-op.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	subject, err := s.tokens.Verify(token, PurposeVerify)
	if err != nil {
		return err
	}

	user, err := s.lookupSubject(ctx, subject)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID, time.Now()); err != nil {
		return oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "mark email verified").
			Wrap(err)
	}
	return nil
}

// UpdateProfile applies a partial profile update. Email changes are
// re-normalized and re-checked against the uniqueness constraint.
func (s *Service) UpdateProfile(ctx context.Context, user *User, update ProfileUpdate) (*User, error) {
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.Email != nil {
		normalized, err := NormalizeEmail(*update.Email)
		if err != nil {
			return nil, err
		}
		user.Email = normalized
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		if IsEmailTaken(err) {
			return nil, err
		}
		return nil, oops.Code("AUTH_PROFILE_UPDATE_FAILED").
			With("operation", "update user").
			Wrap(err)
	}
	return user, nil
}

// lookupSubject resolves a verified token subject to a user. A missing
// user maps to the generic invalid-token error: the token outlived the
// account, and that distinction must not leak.
func (s *Service) lookupSubject(ctx context.Context, subject string) (*User, error) {
	id, err := ulid.Parse(subject)
	if err != nil {
		return nil, invalidToken()
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, invalidToken()
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}
	return user, nil
}

// sendAsync hands an email to the mailer without blocking the request.
// Delivery failure is logged, never surfaced to the user.
func (s *Service) sendAsync(kind, to, subject, htmlBody string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailSendTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, to, subject, htmlBody); err != nil {
			observability.RecordEmailFailure(kind)
			errutil.LogError(s.logger, "failed to send email", err)
		}
	}()
}

// invalidCredentials is the single login failure error: user not found,
// no password hash, and wrong password are indistinguishable.
func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
}
