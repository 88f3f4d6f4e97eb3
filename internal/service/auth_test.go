package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
	"github.com/iliyamo/rentals-marketplace/internal/utils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuth() (*AuthService, *MockRenterStore, *MockSessionStore) {
	return newAuthWithFiles(newMemFiles())
}

func newAuthWithFiles(files *memFiles) (*AuthService, *MockRenterStore, *MockSessionStore) {
	renters, sessions := new(MockRenterStore), new(MockSessionStore)
	svc := NewAuthService(renters, sessions, files, AuthOptions{
		Secret: testSecret, TTL: 24 * time.Hour, Cost: bcrypt.MinCost, MaxUploadBytes: 5 << 20,
	})
	return svc, renters, sessions
}

func validRegistration() RegisterInput {
	return RegisterInput{
		EntityName: "Acme Rentals", PocName: "Ann", PhoneNumber: "9876543210",
		Location: "Pune", Email: "Owner@Acme.test", Password: "s3cret-pass",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, renters, _ := newAuth()
		renters.On("Create", ctx, mock.AnythingOfType("*model.Renter")).Run(func(args mock.Arguments) {
			args.Get(1).(*model.Renter).ID = 7
		}).Return(nil)

		rt, err := svc.Register(ctx, validRegistration())
		require.NoError(t, err)
		assert.Equal(t, uint64(7), rt.ID)
		assert.Equal(t, "owner@acme.test", rt.Email)
		assert.True(t, utils.VerifyPassword(rt.PasswordHash, "s3cret-pass"))
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		svc, renters, _ := newAuth()
		renters.On("Create", ctx, mock.Anything).Return(repository.ErrEmailExists)

		_, err := svc.Register(ctx, validRegistration())
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("ProfileImage", func(t *testing.T) {
		files := newMemFiles()
		svc, renters, _ := newAuthWithFiles(files)
		renters.On("Create", ctx, mock.AnythingOfType("*model.Renter")).Return(nil)

		in := validRegistration()
		img := png()
		in.ProfileImage = &img
		rt, err := svc.Register(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "images/1-file", rt.ProfileImage)
		assert.Equal(t, 1, files.count(storage.KindImage))
		renters.AssertCalled(t, "Create", ctx, mock.MatchedBy(func(r *model.Renter) bool {
			return r.ProfileImage == "images/1-file"
		}))
	})

	t.Run("ProfileImageRemovedOnDuplicate", func(t *testing.T) {
		files := newMemFiles()
		svc, renters, _ := newAuthWithFiles(files)
		renters.On("Create", ctx, mock.Anything).Return(repository.ErrEmailExists)

		in := validRegistration()
		img := png()
		in.ProfileImage = &img
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Zero(t, files.count(storage.KindImage))
	})

	t.Run("ProfileImageRejected", func(t *testing.T) {
		files := newMemFiles()
		svc, renters, _ := newAuthWithFiles(files)

		in := validRegistration()
		bad := badUpload()
		in.ProfileImage = &bad
		_, err := svc.Register(ctx, in)
		assert.Equal(t, "profile_image", validationField(t, err))

		in.ProfileImage = &Upload{Filename: "big.png", Size: 6 << 20, Content: png().Content}
		_, err = svc.Register(ctx, in)
		assert.Equal(t, "profile_image", validationField(t, err))

		assert.Zero(t, files.count(storage.KindImage))
		renters.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Validation", func(t *testing.T) {
		svc, renters, _ := newAuth()
		cases := map[string]func(*RegisterInput){
			"entity_name":  func(in *RegisterInput) { in.EntityName = "" },
			"poc_name":     func(in *RegisterInput) { in.PocName = "" },
			"phone_number": func(in *RegisterInput) { in.PhoneNumber = "12ab" },
			"location":     func(in *RegisterInput) { in.Location = "" },
			"email":        func(in *RegisterInput) { in.Email = "not-an-email" },
			"password":     func(in *RegisterInput) { in.Password = "short" },
		}
		for field, mutate := range cases {
			in := validRegistration()
			mutate(&in)
			_, err := svc.Register(ctx, in)
			assert.Equal(t, field, validationField(t, err))
		}
		renters.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	hash, err := utils.HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	renter := model.Renter{ID: 7, Email: "owner@acme.test", EntityName: "Acme Rentals", PasswordHash: hash}

	t.Run("Success", func(t *testing.T) {
		svc, renters, sessions := newAuth()
		renters.On("GetByEmail", ctx, "owner@acme.test").Return(renter, nil)
		sessions.On("Create", ctx, uint64(7), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(uint64(1), nil)

		sess, err := svc.Login(ctx, " OWNER@acme.test ", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, model.Principal{RenterID: 7, EntityName: "Acme Rentals"}, sess.Principal)
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), sess.ExpiresAt, time.Minute)

		claims, err := utils.ParseSession(testSecret, sess.Token)
		require.NoError(t, err)
		sessions.AssertCalled(t, "Create", ctx, uint64(7), utils.HashToken(claims.SID), mock.Anything)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		svc, renters, sessions := newAuth()
		renters.On("GetByEmail", ctx, "owner@acme.test").Return(renter, nil)

		_, err := svc.Login(ctx, "owner@acme.test", "nope-nope")
		assert.ErrorIs(t, err, ErrUnauthorized)
		sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		svc, renters, _ := newAuth()
		renters.On("GetByEmail", ctx, "ghost@acme.test").Return(model.Renter{}, repository.ErrNotFound)

		_, err := svc.Login(ctx, "ghost@acme.test", "whatever1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("UnknownEmailHashesAtConfiguredCost", func(t *testing.T) {
		svc := NewAuthService(new(MockRenterStore), new(MockSessionStore), newMemFiles(),
			AuthOptions{Secret: testSecret, TTL: time.Hour, Cost: 5})
		cost, err := bcrypt.Cost([]byte(svc.dummyHash))
		require.NoError(t, err)
		assert.Equal(t, 5, cost)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	sid := "raw-session-id"
	token, err := utils.SignSession(testSecret, 7, sid, "Acme Rentals", now, now.Add(time.Hour))
	require.NoError(t, err)

	t.Run("SlidesExpiry", func(t *testing.T) {
		svc, _, sessions := newAuth()
		sessions.On("Resolve", ctx, utils.HashToken(sid), mock.Anything).
			Return(model.Session{ID: 3, RenterID: 7, EntityName: "Acme Rentals"}, nil)
		sessions.On("Touch", ctx, uint64(3), mock.AnythingOfType("time.Time")).Return(nil)

		sess, err := svc.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), sess.Principal.RenterID)
		assert.True(t, sess.ExpiresAt.After(now.Add(23*time.Hour)))
		sessions.AssertExpectations(t)
	})

	t.Run("RevokedOrUnknown", func(t *testing.T) {
		svc, _, sessions := newAuth()
		sessions.On("Resolve", ctx, mock.Anything, mock.Anything).Return(model.Session{}, repository.ErrNotFound)

		_, err := svc.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("RenterMismatch", func(t *testing.T) {
		svc, _, sessions := newAuth()
		sessions.On("Resolve", ctx, mock.Anything, mock.Anything).Return(model.Session{ID: 3, RenterID: 8}, nil)

		_, err := svc.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("BadToken", func(t *testing.T) {
		svc, _, sessions := newAuth()
		_, err := svc.Resolve(ctx, "garbage")
		assert.ErrorIs(t, err, ErrUnauthorized)
		sessions.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("StoreError", func(t *testing.T) {
		svc, _, sessions := newAuth()
		sessions.On("Resolve", ctx, mock.Anything, mock.Anything).Return(model.Session{}, errStoreDown)

		_, err := svc.Resolve(ctx, token)
		assert.ErrorIs(t, err, errStoreDown)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	token, err := utils.SignSession(testSecret, 7, "sid-1", "Acme Rentals", now, now.Add(time.Hour))
	require.NoError(t, err)

	svc, _, sessions := newAuth()
	sessions.On("Revoke", ctx, utils.HashToken("sid-1")).Return(nil).Once()
	require.NoError(t, svc.Logout(ctx, token))

	sessions.On("Revoke", ctx, utils.HashToken("sid-1")).Return(errStoreDown).Once()
	assert.ErrorIs(t, svc.Logout(ctx, token), errStoreDown)

	assert.ErrorIs(t, svc.Logout(ctx, "garbage"), ErrUnauthorized)
}
