package account

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memRepo struct {
	byID map[int64]*Account
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[int64]*Account{}}
}

func (m *memRepo) Create(_ context.Context, a *Account) error {
	for _, existing := range m.byID {
		if existing.Username == a.Username {
			return ErrUsernameTaken
		}
	}
	a.ID = int64(len(m.byID) + 1)
	a.CreatedAt = time.Now()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) GetByUsername(_ context.Context, username string) (*Account, error) {
	for _, a := range m.byID {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memRepo) UpdateProfile(_ context.Context, a *Account) error {
	if _, ok := m.byID[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func newTestService() *Service {
	s := NewService(newMemRepo(), log.New(io.Discard, "", 0))
	s.bcryptCost = bcrypt.MinCost
	return s
}

var validRegistration = RegisterInput{
	FirstName: "Ann",
	LastName:  "Lee",
	Username:  "ann",
	Email:     "ann@example.com",
	Password1: "correct-horse",
	Password2: "correct-horse",
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	a, err := svc.Register(ctx, validRegistration)
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.NotEqual(t, validRegistration.Password1, a.PasswordHash)

	got, err := svc.Authenticate(ctx, "ann", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ann", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, validRegistration)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterValidation(t *testing.T) {
	tests := map[string]struct {
		mutate    func(in *RegisterInput)
		wantField string
	}{
		"short password":    {mutate: func(in *RegisterInput) { in.Password1, in.Password2 = "short", "short" }, wantField: "password1"},
		"mismatch":          {mutate: func(in *RegisterInput) { in.Password2 = "different-one" }, wantField: "password2"},
		"bad email":         {mutate: func(in *RegisterInput) { in.Email = "not-an-email" }, wantField: "email"},
		"missing username":  {mutate: func(in *RegisterInput) { in.Username = " " }, wantField: "username"},
		"username spaces":   {mutate: func(in *RegisterInput) { in.Username = "a b" }, wantField: "username"},
		"missing last name": {mutate: func(in *RegisterInput) { in.LastName = "" }, wantField: "last_name"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			in := validRegistration
			tt.mutate(&in)
			_, err := newTestService().Register(context.Background(), in)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.wantField)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	a, err := svc.Register(ctx, validRegistration)
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, a.ID, ProfileInput{
		FirstName: "Anna", LastName: "Lee", Username: "anna", Email: "anna@example.com", PhoneNumber: "+15551234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "anna", updated.Username)

	got, err := svc.Profile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got.PhoneNumber)

	_, err = svc.UpdateProfile(ctx, a.ID, ProfileInput{FirstName: "A", LastName: "L", Username: "anna", Email: "anna@example.com", PhoneNumber: "call me"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "phone_number")

	_, err = svc.Profile(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue(42)
	require.NoError(t, err)
	id, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = NewTokens("other-secret", time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokens("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(42)
	require.NoError(t, err)
	_, err = tokens.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
