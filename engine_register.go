package sessionauth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/password"
)

const maxEmailLength = 254

// Register creates an account. The email is case-folded before the
// uniqueness check, so "A@x.com" and "a@x.com" collide with ErrConflict.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*account.PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	email := account.NormalizeEmail(req.Email)
	role, verr := e.validateRegistration(email, req.Password, req.Role)
	if verr != nil {
		return nil, verr
	}

	if err := e.checkRate(ctx, rateScopeRegister, MetricRegisterRateLimited); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	now := e.now()
	u := &account.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := e.storeScope(ctx)
	err = e.store.Create(sctx, u)
	cancel()
	if err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			e.metricInc(MetricRegisterDuplicate)
			return nil, ErrConflict
		}
		return nil, e.storeError("create user", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionUserRegistered,
		userID:  u.ID,
		email:   u.Email,
		details: "User registered with email: " + u.Email,
	}, func() map[string]string {
		return map[string]string{"role": string(u.Role)}
	})

	pub := u.Public()
	return &pub, nil
}

func (e *Engine) validateRegistration(email, pw, roleInput string) (account.Role, error) {
	verr := &ValidationError{}
	if msg := validateEmail(email); msg != "" {
		verr.add("email", msg)
	}
	e.validatePassword(verr, "password", pw)

	role, ok := account.ParseRole(roleInput)
	if !ok {
		verr.add("role", "role must be one of user, manager, admin")
	}
	return role, verr.orNil()
}

func (e *Engine) validatePassword(verr *ValidationError, field, pw string) {
	if pw == "" {
		verr.add(field, "password is required")
		return
	}
	var perr *password.PolicyError
	if err := e.policy.Check(pw); errors.As(err, &perr) {
		for _, v := range perr.Violations {
			verr.add(field, v)
		}
	}
}

func validateEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	if len(email) > maxEmailLength {
		return "email is too long"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndexByte(email, '@')+1:], ".") {
		return "please provide a valid email"
	}
	return ""
}
