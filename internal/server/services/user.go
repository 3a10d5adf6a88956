package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/dbx"
	"github.com/dmitrijs2005/fruitful/internal/server/auth"
	"github.com/dmitrijs2005/fruitful/internal/server/config"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/dmitrijs2005/fruitful/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fruitful/internal/timex"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService owns the credential lifecycle: accounts, password hashing,
// login and refresh token rotation. Email uniqueness is left to the store.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// Create hashes the password and stores the account. A taken email yields
// common.ErrorAlreadyExists.
func (s *UserService) Create(ctx context.Context, in models.UserCreate) (*models.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	now := timex.Stamp(s.now())
	user := &models.User{
		Email:          in.Email,
		FullName:       in.FullName,
		HashedPassword: hash,
		IsSuperuser:    in.IsSuperuser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.lookup(s.repomanager.Users(s.db).GetByID(ctx, id))
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.lookup(s.repomanager.Users(s.db).GetByEmail(ctx, email))
}

func (s *UserService) lookup(u *models.User, err error) (*models.User, error) {
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return u, nil
}

// List returns a page of accounts and the total number of accounts.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]*models.User, int, error) {
	repo := s.repomanager.Users(s.db)
	users, err := repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing users: %w", err)
	}
	count, err := repo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}
	return users, count, nil
}

// Update applies patch, re-hashing only when a new password is given.
func (s *UserService) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.FullName != nil {
		user.FullName = *patch.FullName
	}
	if patch.IsSuperuser != nil {
		user.IsSuperuser = *patch.IsSuperuser
	}
	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		user.HashedPassword = hash
	}
	user.UpdatedAt = timex.Stamp(s.now())

	if err := s.repomanager.Users(s.db).Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return user, nil
}

// UpdatePassword checks current before storing next and revokes every
// refresh token of the user.
func (s *UserService) UpdatePassword(ctx context.Context, id, current, next string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	ok, err := auth.VerifyPassword(current, user.HashedPassword)
	if err != nil || !ok {
		return common.ErrorUnauthorized
	}
	if current == next {
		return fmt.Errorf("%w: new password cannot be the same as the current one", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	user.HashedPassword = hash
	user.UpdatedAt = timex.Stamp(s.now())

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Update(ctx, user); err != nil {
			return fmt.Errorf("error updating user: %w", err)
		}
		if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error revoking refresh tokens: %w", err)
		}
		return nil
	})
}

// Authenticate returns common.ErrorUnauthorized for an unknown email or a
// wrong password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	ok, err := auth.VerifyPassword(password, user.HashedPassword)
	if err != nil || !ok {
		return nil, common.ErrorUnauthorized
	}
	return user, nil
}

// Login authenticates and returns a new TokenPair.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, user.ID, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if !token.Expires.After(timex.Stamp(s.now())) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// EnsureSuperuser creates a superuser with the given credentials unless the
// email is already registered. created reports whether an account was made.
func (s *UserService) EnsureSuperuser(ctx context.Context, email, password, fullName string) (user *models.User, created bool, err error) {
	user, err = s.GetByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, common.ErrUserNotFound) {
		return nil, false, err
	}

	user, err = s.Create(ctx, models.UserCreate{
		Email:       email,
		FullName:    fullName,
		Password:    password,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := timex.Stamp(s.now())
	token := &models.RefreshToken{
		UserID:    userID,
		Token:     refresh,
		Expires:   now.Add(s.refreshTokenValidityDuration),
		CreatedAt: now,
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, token); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
