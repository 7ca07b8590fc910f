package logic

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/achilles-kt/solace-app/config"
	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/metering"
	"github.com/achilles-kt/solace-app/models"
	"github.com/achilles-kt/solace-app/pkg"
)

// rig wires the full stack against an in-memory database.
type rig struct {
	coins      *ledger.Ledger
	manager    *metering.Manager
	userDAO    *dao.UserDAO
	personaDAO *dao.PersonaDAO
	convoDAO   *dao.ConversationDAO
	messageDAO *dao.MessageDAO
	txDAO      *dao.CoinTransactionDAO
}

func newRig(t *testing.T) *rig {
	t.Helper()
	setTestConfig()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Persona{},
		&models.Conversation{},
		&models.Message{},
		&models.CoinTransaction{},
	))

	userDAO := dao.NewUserDAO(db)
	txDAO := dao.NewCoinTransactionDAO(db)
	coins := ledger.NewLedger(userDAO, ledger.Options{
		StartingGrant: config.GlobalConfig.Billing.StartingGrant,
		Journal:       txDAO,
		Backoff:       time.Millisecond,
	})
	manager := metering.NewManager(coins, metering.ManagerOptions{})

	return &rig{
		coins:      coins,
		manager:    manager,
		userDAO:    userDAO,
		personaDAO: dao.NewPersonaDAO(db),
		convoDAO:   dao.NewConversationDAO(db),
		messageDAO: dao.NewMessageDAO(db),
		txDAO:      txDAO,
	}
}

func setTestConfig() {
	config.GlobalConfig.Auth.Secret = "test-secret"
	config.GlobalConfig.Auth.ExpHour = 1
	config.GlobalConfig.Chat.MaxHistory = 5
	config.GlobalConfig.Billing.StartingGrant = 30
	config.GlobalConfig.Billing.AdReward = 10
	config.GlobalConfig.Billing.AdDailyLimit = 6
	config.GlobalConfig.Billing.ReferralReward = 20
	config.GlobalConfig.Billing.ReferralLimit = 10
	config.GlobalConfig.Billing.DealReward = 60
}

func (r *rig) seedPersona(t *testing.T, p models.Persona) uint64 {
	t.Helper()
	seeded := []models.Persona{p}
	require.NoError(t, r.personaDAO.Seed(seeded))
	return seeded[0].ID
}

func (r *rig) login(t *testing.T, deviceID string) {
	t.Helper()
	_, err := r.coins.Initialize(deviceID)
	require.NoError(t, err)
}

// fakeResponder records what it was asked and returns a canned reply.
type fakeResponder struct {
	reply   string
	err     error
	asks    []string
	history [][]pkg.RequestMessage
}

func (f *fakeResponder) Respond(_ context.Context, _ string, history []pkg.RequestMessage, ask string, stream func(string)) (string, error) {
	f.asks = append(f.asks, ask)
	f.history = append(f.history, history)
	if f.err != nil {
		return "", f.err
	}
	if stream != nil {
		stream(f.reply)
	}
	return f.reply, nil
}
