package dao_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
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
	return db
}

func TestUserDAOAsBalanceStore(t *testing.T) {
	db := newTestDB(t)
	userDAO := dao.NewUserDAO(db)

	_, err := userDAO.GetBalance("dev-1")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	require.NoError(t, userDAO.CreateAccount("dev-1", 30))

	balance, err := userDAO.GetBalance("dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)

	require.NoError(t, userDAO.SetBalance("dev-1", 55))
	balance, err = userDAO.GetBalance("dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(55), balance)

	user, err := userDAO.GetUserByDeviceID("dev-1")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", user.DeviceID)
	assert.Equal(t, int64(55), user.Coins)
}

func TestCoinTransactionJournal(t *testing.T) {
	db := newTestDB(t)
	userDAO := dao.NewUserDAO(db)
	txDAO := dao.NewCoinTransactionDAO(db)

	require.NoError(t, userDAO.CreateAccount("dev-1", 30))

	require.NoError(t, txDAO.Record("dev-1", models.TxKindCredit, "ad-reward", 10, 40))
	require.NoError(t, txDAO.Record("dev-1", models.TxKindDebit, "persona:1", 15, 25))
	require.NoError(t, txDAO.Record("dev-1", models.TxKindDebit, "persona:1", 5, 20))

	// Debits bump the lifetime spend counter
	user, err := userDAO.GetUserByDeviceID("dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), user.CoinsSpent)

	n, err := txDAO.CountByReason("dev-1", "persona:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = txDAO.CountByReasonSince("dev-1", "ad-reward", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = txDAO.CountByReasonSince("dev-1", "ad-reward", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	txs, err := txDAO.GetByUserID("dev-1", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(20), txs[0].BalanceAfter, "newest first")
}

func TestConversationsAndMessages(t *testing.T) {
	db := newTestDB(t)
	convoDAO := dao.NewConversationDAO(db)
	messageDAO := dao.NewMessageDAO(db)

	convo, err := convoDAO.CreateConversation("dev-1", 7)
	require.NoError(t, err)

	found, err := convoDAO.GetConversation("dev-1", 7)
	require.NoError(t, err)
	assert.Equal(t, convo.ID, found.ID)

	_, err = convoDAO.GetConversation("dev-1", 8)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = messageDAO.CreateMessage(convo.ID, "user", "hi")
	require.NoError(t, err)
	_, err = messageDAO.CreateMessage(convo.ID, "assistant", "hello")
	require.NoError(t, err)
	img, err := messageDAO.CreateImageMessage(convo.ID, "https://example.com/a.jpg", 15)
	require.NoError(t, err)
	assert.True(t, img.Locked)
	assert.Equal(t, int64(15), img.UnlockCost)

	messages, err := messageDAO.GetMessagesByConversationID(convo.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "hi", messages[0].Content)

	require.NoError(t, messageDAO.UnlockMessage(img.ID))
	reloaded, err := messageDAO.GetMessageByID(img.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Locked)

	convos, err := convoDAO.GetConversationsByUserID("dev-1")
	require.NoError(t, err)
	assert.Len(t, convos, 1)
}

func TestPersonaCatalog(t *testing.T) {
	db := newTestDB(t)
	personaDAO := dao.NewPersonaDAO(db)

	n, err := personaDAO.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, personaDAO.Seed([]models.Persona{
		{Name: "Priya", PricePerMin: 15, IsActive: true},
		{Name: "Retired", PricePerMin: 10, IsActive: false},
	}))

	active, err := personaDAO.GetActivePersonas()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Priya", active[0].Name)

	persona, err := personaDAO.GetPersonaByID(active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), persona.PricePerMin)
}
