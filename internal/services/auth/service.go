package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Rejection reasons returned by ValidateUser. These are diagnostics for logs,
// not a stable API surface; callers branch on Result.Valid alone.
const (
	ReasonValid            = "Valid"
	ReasonMissingAuth      = "Missing Telegram authentication"
	ReasonInvalidAuth      = "Invalid Telegram authentication"
	ReasonNoUserData       = "Invalid user data in token"
	ReasonBadUserFormat    = "Invalid user data format"
	ReasonMissingUserID    = "Missing user ID in token"
	ReasonVerifierUnavail  = "Auth service unavailable"
	reasonMismatchFmt      = "User ID mismatch: %d != %d"
	reasonUnexpectedErrFmt = "Validation error: %v"
)

// Service validates that a request-declared user id matches the user embedded
// in the request's signed init data, and issues session tokens on success.
type Service struct {
	verifier *Verifier
	sessions *SessionManager
	logger   *zap.Logger
}

func NewService(verifier *Verifier, sessions *SessionManager, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		verifier: verifier,
		sessions: sessions,
		logger:   logger,
	}
}

// ValidateUser decides whether a request may act as userID. It never returns
// an error and never panics: every failure, including unexpected ones, is
// folded into a failed Result with a diagnostic reason.
func (s *Service) ValidateUser(ctx context.Context, userID int64, initData string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("unexpected init data validation failure",
				zap.Int64("user_id", userID),
				zap.Any("panic", r),
			)
			result = Result{Valid: false, Reason: fmt.Sprintf(reasonUnexpectedErrFmt, r)}
		}
	}()

	if strings.TrimSpace(initData) == "" {
		s.logger.Warn("no init data provided", zap.Int64("user_id", userID))
		return Result{Valid: false, Reason: ReasonMissingAuth}
	}

	if s.verifier == nil {
		// Fail closed rather than open when the verifier is not wired.
		s.logger.Error("init data verifier is not configured")
		return Result{Valid: false, Reason: ReasonVerifierUnavail}
	}

	claims, err := s.verifier.Verify(initData)
	if err != nil {
		s.logger.Warn("invalid init data",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return Result{Valid: false, Reason: ReasonInvalidAuth}
	}

	if claims.RawUser == "" {
		s.logger.Warn("no user data in init data", zap.Int64("user_id", userID))
		return Result{Valid: false, Reason: ReasonNoUserData}
	}
	if claims.User == nil {
		s.logger.Warn("malformed user data in init data", zap.Int64("user_id", userID))
		return Result{Valid: false, Reason: ReasonBadUserFormat}
	}

	embeddedID := claims.User.ID
	if embeddedID == 0 {
		s.logger.Warn("no user id in init data", zap.Int64("user_id", userID))
		return Result{Valid: false, Reason: ReasonMissingUserID}
	}

	if embeddedID != userID {
		s.logger.Warn("user id mismatch",
			zap.Int64("declared", userID),
			zap.Int64("embedded", embeddedID),
		)
		return Result{Valid: false, Reason: fmt.Sprintf(reasonMismatchFmt, userID, embeddedID)}
	}

	_ = ctx
	return Result{Valid: true, Reason: ReasonValid}
}

// VerifyUser validates init data without a declared user id and issues a
// session token for the embedded user. Backs the /verify-user endpoint.
func (s *Service) VerifyUser(ctx context.Context, initData string) (VerifiedUser, error) {
	if strings.TrimSpace(initData) == "" {
		return VerifiedUser{}, ErrMissingInitData
	}
	if s.verifier == nil {
		return VerifiedUser{}, ErrBotTokenMissing
	}

	claims, err := s.verifier.Verify(initData)
	if err != nil {
		return VerifiedUser{}, err
	}
	if claims.User == nil || claims.User.ID == 0 {
		return VerifiedUser{}, fmt.Errorf("no user in init data: %w", ErrUnauthorized)
	}

	verified := VerifiedUser{
		User:     *claims.User,
		AuthDate: claims.AuthDate,
	}

	if s.sessions != nil {
		token, expiresAt, signErr := s.sessions.Generate(claims.User.ID, claims.User.Username)
		if signErr != nil {
			return VerifiedUser{}, fmt.Errorf("issue session token: %w", signErr)
		}
		verified.SessionToken = token
		verified.SessionExpires = expiresAt
	}

	_ = ctx
	return verified, nil
}

// ResolveIdentity authenticates a request from either a raw init data payload
// or a previously issued session token.
func (s *Service) ResolveIdentity(ctx context.Context, initData, sessionToken string) (Identity, error) {
	if strings.TrimSpace(initData) != "" {
		verified, err := s.VerifyUser(ctx, initData)
		if err != nil {
			return Identity{}, err
		}
		return Identity{UserID: verified.User.ID, Username: verified.User.Username}, nil
	}

	if strings.TrimSpace(sessionToken) != "" && s.sessions != nil {
		claims, err := s.sessions.Parse(sessionToken)
		if err != nil {
			return Identity{}, err
		}
		return Identity{UserID: claims.UserID, Username: claims.Username}, nil
	}

	return Identity{}, ErrMissingInitData
}

// IsAuthError reports whether err is a client authentication failure rather
// than an internal fault.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMissingInitData) ||
		errors.Is(err, ErrMissingHash) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpiredAuth) ||
		errors.Is(err, ErrUnauthorized)
}
