package dao

import (
	"errors"

	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/models"
)

// UserDAO handles user-related database operations. It is the durable
// Balance Store the ledger synchronizes to.
type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

// GetUserByDeviceID retrieves a user by device id
func (d *UserDAO) GetUserByDeviceID(deviceID string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("device_id = ?", deviceID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetBalance implements ledger.Store
func (d *UserDAO) GetBalance(deviceID string) (int64, error) {
	user, err := d.GetUserByDeviceID(deviceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ledger.ErrAccountNotFound
		}
		return 0, err
	}
	return user.Coins, nil
}

// CreateAccount implements ledger.Store
func (d *UserDAO) CreateAccount(deviceID string, balance int64) error {
	user := &models.User{DeviceID: deviceID, Coins: balance}
	return d.db.Create(user).Error
}

// SetBalance implements ledger.Store
func (d *UserDAO) SetBalance(deviceID string, balance int64) error {
	return d.db.Model(&models.User{}).
		Where("device_id = ?", deviceID).
		Update("coins", balance).Error
}
