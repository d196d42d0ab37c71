package service

import (
	"context"
	"errors"
	"fmt"

	"accounts_api/internal/common"
	"accounts_api/internal/common/security"
	"accounts_api/internal/domain/model"
	"accounts_api/internal/domain/repository"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// AccountService enforces the account workflow: who may log in, who counts
// as an administrator, and which transitions of the approval/staff flags are
// allowed. Staff checks read the actor fresh from the store rather than
// trusting token claims, so a promotion or deletion takes effect immediately.
type AccountService struct {
	accountRepo repository.AccountRepository
}

func NewAccountService(accountRepo repository.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 150), validation.By(validateSlugForm)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 254), is.Email),
		validation.Field(&r.FirstName, validation.Length(0, 150)),
		validation.Field(&r.LastName, validation.Length(0, 150)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

// Usernames appear in URLs and admin listings, so they must already be in
// slug form; we reject rather than silently rewrite what the user typed.
func validateSlugForm(value interface{}) error {
	s, _ := value.(string)
	if !slug.IsSlug(s) {
		return errors.New("must contain only lowercase letters, digits and hyphens")
	}
	return nil
}

// Register creates an account pending admin approval. All privilege flags
// start false.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HashedPassword: hashedPassword,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.Errorf("username already taken: %w", common.ErrValidation)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	account.HashedPassword = "" // Clear before returning
	return account, nil
}

// Authenticate verifies credentials and the approval gate. An unknown
// username and a wrong password are indistinguishable to the caller; a
// correct password on an unapproved account is reported separately so the
// frontend can tell the user to wait for approval.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	if username == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	account, err := s.accountRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if !security.CheckPasswordHash(password, account.HashedPassword) {
		return nil, common.ErrInvalidCredentials
	}

	if !account.IsApproved {
		return nil, common.ErrNotApproved
	}

	return account, nil
}

func (s *AccountService) GetProfile(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accountRepo.FindByID(ctx, accountID)
}

// ListAccounts returns every account, most recently joined first. Staff only.
func (s *AccountService) ListAccounts(ctx context.Context, actorID string) ([]model.Account, error) {
	if _, err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	return s.accountRepo.ListAll(ctx)
}

// Approve sets is_approved on the target. Approving an already-approved
// account is a no-op success.
func (s *AccountService) Approve(ctx context.Context, actorID, targetID string) (*model.Account, error) {
	if _, err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	return s.accountRepo.SetApproved(ctx, targetID)
}

// PromoteToStaff sets is_staff on the target. Idempotent. Promotion does not
// touch is_approved.
func (s *AccountService) PromoteToStaff(ctx context.Context, actorID, targetID string) (*model.Account, error) {
	if _, err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}
	return s.accountRepo.SetStaff(ctx, targetID)
}

// DeleteAccount permanently removes the target. There is no safeguard
// against staff deleting themselves or the last administrator.
func (s *AccountService) DeleteAccount(ctx context.Context, actorID, targetID string) error {
	if _, err := s.requireStaff(ctx, actorID); err != nil {
		return err
	}
	return s.accountRepo.Delete(ctx, targetID)
}

// AdminExists reports whether any staff account exists. Used by the frontend
// to decide whether to offer the initial setup form.
func (s *AccountService) AdminExists(ctx context.Context) (bool, error) {
	return s.accountRepo.StaffExists(ctx)
}

// BootstrapFirstAdmin creates the very first administrator, fully privileged
// from the start. The existence check and the insert run as one atomic unit
// in the repository, so concurrent attempts cannot both succeed.
func (s *AccountService) BootstrapFirstAdmin(ctx context.Context, req RegisterRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, common.Errorf("%v: %w", err, common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.Account{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HashedPassword: hashedPassword,
		IsApproved:     true,
		IsStaff:        true,
		IsSuperuser:    true,
	}

	if err := s.accountRepo.CreateFirstAdmin(ctx, account); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.Errorf("username already taken: %w", common.ErrValidation)
		}
		return nil, err
	}

	account.HashedPassword = ""
	return account, nil
}

func (s *AccountService) requireStaff(ctx context.Context, actorID string) (*model.Account, error) {
	actor, err := s.accountRepo.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Valid token for an account that no longer exists.
			return nil, common.ErrForbidden
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if !actor.IsStaff {
		return nil, common.ErrForbidden
	}
	return actor, nil
}
