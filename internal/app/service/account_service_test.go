package service_test

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"accounts_api/internal/app/service"
	"accounts_api/internal/common"
	"accounts_api/internal/common/security"
	"accounts_api/internal/domain/model"
	"accounts_api/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.AppConfig = &config.Config{
		JWTKey:          []byte("test-signing-key"),
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 24 * time.Hour,
		BcryptCost:      4, // keep tests fast
	}
	security.InitJWT()
	os.Exit(m.Run())
}

// fakeAccountRepo is an in-memory AccountRepository. The mutex matters for
// the concurrent bootstrap test: CreateFirstAdmin must treat the existence
// check and the insert as one atomic unit, like the Postgres implementation
// does under its advisory lock.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: map[string]*model.Account{}}
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == account.Username {
			return common.ErrConflict
		}
	}
	account.DateJoined = time.Now()
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *fakeAccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepo) ListAll(ctx context.Context) ([]model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Account{}
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateJoined.After(out[j].DateJoined)
	})
	return out, nil
}

func (r *fakeAccountRepo) SetApproved(ctx context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	a.IsApproved = true
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepo) SetStaff(ctx context.Context, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	a.IsStaff = true
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) StaffExists(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.staffExistsLocked(), nil
}

func (r *fakeAccountRepo) staffExistsLocked() bool {
	for _, a := range r.accounts {
		if a.IsStaff {
			return true
		}
	}
	return false
}

func (r *fakeAccountRepo) CreateFirstAdmin(ctx context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staffExistsLocked() {
		return common.ErrAlreadyBootstrapped
	}
	for _, a := range r.accounts {
		if a.Username == account.Username {
			return common.ErrConflict
		}
	}
	account.DateJoined = time.Now()
	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *fakeAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

func validRegistration(username string) service.RegisterRequest {
	return service.RegisterRequest{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Test",
		LastName:  "User",
		Password:  "Str0ngP@ssword",
	}
}

func registerStaff(t *testing.T, svc *service.AccountService, repo *fakeAccountRepo, username string) *model.Account {
	t.Helper()
	account, err := svc.Register(context.Background(), validRegistration(username))
	require.NoError(t, err)
	_, err = repo.SetApproved(context.Background(), account.ID)
	require.NoError(t, err)
	_, err = repo.SetStaff(context.Background(), account.ID)
	require.NoError(t, err)
	return account
}

func TestRegisterCreatesUnprivilegedAccount(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	account, err := svc.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "alice", account.Username)
	assert.False(t, account.IsApproved)
	assert.False(t, account.IsStaff)
	assert.False(t, account.IsSuperuser)
	assert.Empty(t, account.HashedPassword)
}

func TestRegisterValidation(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	tests := []struct {
		name string
		req  service.RegisterRequest
	}{
		{"missing username", service.RegisterRequest{Email: "a@example.com", Password: "Str0ngP@ssword"}},
		{"non-slug username", service.RegisterRequest{Username: "Not A Slug!", Email: "a@example.com", Password: "Str0ngP@ssword"}},
		{"missing email", service.RegisterRequest{Username: "alice", Password: "Str0ngP@ssword"}},
		{"malformed email", service.RegisterRequest{Username: "alice", Email: "not-an-email", Password: "Str0ngP@ssword"}},
		{"missing password", service.RegisterRequest{Username: "alice", Email: "a@example.com"}},
		{"short password", service.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "short"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
	assert.Equal(t, 0, repo.count())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	_, err := svc.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegistration("alice"))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, 1, repo.count())
}

func TestAuthenticate(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	account, err := svc.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "nobody", "Str0ngP@ssword")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "alice", "wrong-password")
		assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("correct password but unapproved", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "alice", "Str0ngP@ssword")
		assert.ErrorIs(t, err, common.ErrNotApproved)
		assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
	})

	t.Run("approved", func(t *testing.T) {
		_, err := repo.SetApproved(context.Background(), account.ID)
		require.NoError(t, err)

		got, err := svc.Authenticate(context.Background(), "alice", "Str0ngP@ssword")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})
}

func TestApproveIsIdempotent(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	staff := registerStaff(t, svc, repo, "admin")
	target, err := svc.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	first, err := svc.Approve(context.Background(), staff.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, first.IsApproved)

	second, err := svc.Approve(context.Background(), staff.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, second.IsApproved)
}

func TestAdminOperationsRequireStaff(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	actor, err := svc.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)
	target, err := svc.Register(context.Background(), validRegistration("bob"))
	require.NoError(t, err)

	_, err = svc.ListAccounts(context.Background(), actor.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.Approve(context.Background(), actor.ID, target.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.PromoteToStaff(context.Background(), actor.ID, target.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	err = svc.DeleteAccount(context.Background(), actor.ID, target.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	// A token subject that no longer exists is forbidden, not a 500.
	_, err = svc.ListAccounts(context.Background(), "gone")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestAdminOperationsOnMissingTarget(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)
	staff := registerStaff(t, svc, repo, "admin")

	_, err := svc.Approve(context.Background(), staff.ID, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.PromoteToStaff(context.Background(), staff.ID, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = svc.DeleteAccount(context.Background(), staff.ID, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPromoteToStaffDoesNotApprove(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	staff := registerStaff(t, svc, repo, "admin")
	target, err := svc.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	promoted, err := svc.PromoteToStaff(context.Background(), staff.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, promoted.IsStaff)
	assert.False(t, promoted.IsApproved)
}

func TestDeleteAccountIsPermanent(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	staff := registerStaff(t, svc, repo, "admin")
	target, err := svc.Register(context.Background(), validRegistration("alice"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(context.Background(), staff.ID, target.ID))

	_, err = svc.GetProfile(context.Background(), target.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = svc.DeleteAccount(context.Background(), staff.ID, target.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListAccountsOrdering(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)
	staff := registerStaff(t, svc, repo, "admin")

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := svc.Register(context.Background(), validRegistration(name))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	accounts, err := svc.ListAccounts(context.Background(), staff.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 4)
	for i := 1; i < len(accounts); i++ {
		assert.True(t, accounts[i-1].DateJoined.After(accounts[i].DateJoined),
			"accounts must be ordered by date_joined descending")
	}
}

func TestBootstrapFirstAdmin(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	exists, err := svc.AdminExists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	admin, err := svc.BootstrapFirstAdmin(context.Background(), validRegistration("root"))
	require.NoError(t, err)
	assert.True(t, admin.IsApproved)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsSuperuser)

	exists, err = svc.AdminExists(context.Background())
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = svc.BootstrapFirstAdmin(context.Background(), validRegistration("root2"))
	assert.ErrorIs(t, err, common.ErrAlreadyBootstrapped)
}

func TestBootstrapFirstAdminConcurrent(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := service.NewAccountService(repo)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.BootstrapFirstAdmin(context.Background(),
				validRegistration(fmt.Sprintf("root-%d", i)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, common.ErrAlreadyBootstrapped)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent bootstrap may succeed")
	assert.Equal(t, 1, repo.count())
}
