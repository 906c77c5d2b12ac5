package core

import (
	"github.com/HansenHomeAI/v0-spaceport-website-sub000/db/models"
)

const USER_SERVICE = "user"

type UserService interface {
	CreateAccount(email string, password string) (*models.User, error)
	AccountExists(id uint) (bool, *models.User, error)
	EmailExists(email string) (bool, *models.User, error)
	LoginPassword(email string, password string, ip string) (string, *models.User, error)
	ValidLoginByUserID(id uint, password string) (bool, *models.User, error)

	Service
}
