package logic

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/mr-tron/base58"

	"github.com/achilles-kt/solace-app/config"
	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/metering"
	"github.com/achilles-kt/solace-app/models"
)

// UserLogic handles the anonymous identity and account bootstrap. The ledger
// is only touched after an identity exists, and Initialize runs exactly once
// per login.
type UserLogic struct {
	userDAO *dao.UserDAO
	coins   *ledger.Ledger
	manager *metering.Manager
}

func NewUserLogic(
	userDAO *dao.UserDAO,
	coins *ledger.Ledger,
	manager *metering.Manager,
) *UserLogic {
	return &UserLogic{
		userDAO: userDAO,
		coins:   coins,
		manager: manager,
	}
}

// LoginAnonymously mints a fresh device identity, bootstraps its ledger
// account (creating the remote record with the starting grant) and issues a
// JWT. A Balance Store failure fails the login; there is no silent
// zero-balance fallback.
func (l *UserLogic) LoginAnonymously() (*models.User, string, time.Time, error) {
	deviceID, err := newDeviceID()
	if err != nil {
		return nil, "", time.Time{}, err
	}

	if _, err := l.coins.Initialize(deviceID); err != nil {
		return nil, "", time.Time{}, fmt.Errorf("bootstrap account: %w", err)
	}

	user, err := l.userDAO.GetUserByDeviceID(deviceID)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, expireAt, err := l.generateJWT(deviceID)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	return user, token, expireAt, nil
}

// Resume re-initializes the ledger for an identity that already holds a
// valid token, e.g. after a server restart. Idempotent.
func (l *UserLogic) Resume(deviceID string) (int64, error) {
	return l.coins.Initialize(deviceID)
}

// GetUser retrieves user info with the authoritative in-memory balance
func (l *UserLogic) GetUser(deviceID string) (*models.User, error) {
	user, err := l.userDAO.GetUserByDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if balance, err := l.coins.Balance(deviceID); err == nil {
		user.Coins = balance
	}
	return user, nil
}

// Logout closes the user's sessions and drops the cached ledger account
func (l *UserLogic) Logout(deviceID string) {
	l.manager.CloseAll(deviceID)
	l.coins.Forget(deviceID)
}

func (l *UserLogic) generateJWT(deviceID string) (string, time.Time, error) {
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.Auth.ExpHour) * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": deviceID,
		"exp":     expireAt.Unix(),
	})
	tokenString, err := token.SignedString([]byte(config.GlobalConfig.Auth.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expireAt, nil
}

func newDeviceID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base58.Encode(buf), nil
}
