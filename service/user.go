package service

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/event"
)

var _ core.UserService = (*UserServiceDefault)(nil)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

func init() {
	core.RegisterService(core.ServiceInfo{
		ID: core.USER_SERVICE,
		Factory: func() (core.Service, []core.ContextBuilderOption, error) {
			return NewUserService()
		},
	})
}

type UserServiceDefault struct {
	ctx core.Context
	db  *gorm.DB
}

func NewUserService() (*UserServiceDefault, []core.ContextBuilderOption, error) {
	user := &UserServiceDefault{}

	opts := core.ContextOptions(
		core.ContextWithStartupFunc(func(ctx core.Context) error {
			user.ctx = ctx
			user.db = ctx.DB()
			return nil
		}),
	)

	return user, opts, nil
}

func (u *UserServiceDefault) ID() string {
	return core.USER_SERVICE
}

func (u *UserServiceDefault) CreateAccount(email string, password string) (*models.User, error) {
	exists, _, err := u.EmailExists(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
	}

	if err = db.RetryOnLock(u.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Create(user)
	}); err != nil {
		return nil, err
	}

	if err = event.FireUserCreatedEvent(u.ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (u *UserServiceDefault) AccountExists(id uint) (bool, *models.User, error) {
	var user models.User

	err := db.RetryOnLock(u.db, func(tx *gorm.DB) *gorm.DB {
		return tx.First(&user, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, &user, nil
}

func (u *UserServiceDefault) EmailExists(email string) (bool, *models.User, error) {
	user := &models.User{}

	err := db.RetryOnLock(u.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Where(&models.User{Email: email}).First(user)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return true, user, nil
}

func (u *UserServiceDefault) LoginPassword(email string, password string, ip string) (string, *models.User, error) {
	exists, user, err := u.EmailExists(email)
	if err != nil {
		return "", nil, err
	}
	if !exists {
		return "", nil, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()

	if err = db.RetryOnLock(u.db, func(tx *gorm.DB) *gorm.DB {
		return tx.Model(user).Updates(&models.User{LastLogin: &now, LastLoginIP: ip})
	}); err != nil {
		return "", nil, err
	}

	cfg := u.ctx.Config().Config().Core

	token, err := core.JWTGenerateToken(cfg.Domain, cfg.Identity.PrivateKey(), user.ID, core.JWTPurposeLogin, false)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (u *UserServiceDefault) ValidLoginByUserID(id uint, password string) (bool, *models.User, error) {
	exists, user, err := u.AccountExists(id)
	if err != nil || !exists {
		return false, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return false, nil, nil
	}

	return true, user, nil
}
