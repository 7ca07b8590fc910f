package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achilles-kt/solace-app/config"
	"github.com/achilles-kt/solace-app/models"
)

func TestPurchasePack(t *testing.T) {
	r := newRig(t)
	r.login(t, "dev-1")
	rewards := NewRewardLogic(r.txDAO, r.coins)

	balance, err := rewards.Purchase("dev-1", "2")
	require.NoError(t, err)
	assert.Equal(t, int64(530), balance)

	_, err = rewards.Purchase("dev-1", "99")
	assert.ErrorIs(t, err, ErrUnknownPack)
}

func TestAdRewardDailyCap(t *testing.T) {
	r := newRig(t)
	config.GlobalConfig.Billing.AdDailyLimit = 3
	r.login(t, "dev-1")
	rewards := NewRewardLogic(r.txDAO, r.coins)

	for i := 0; i < 3; i++ {
		_, err := rewards.AdReward("dev-1")
		require.NoError(t, err)
	}
	_, err := rewards.AdReward("dev-1")
	assert.ErrorIs(t, err, ErrRewardLimit)

	balance, err := r.coins.Balance("dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)
}

func TestReferralLifetimeCap(t *testing.T) {
	r := newRig(t)
	config.GlobalConfig.Billing.ReferralLimit = 2
	r.login(t, "dev-1")
	rewards := NewRewardLogic(r.txDAO, r.coins)

	for i := 0; i < 2; i++ {
		_, err := rewards.ReferralReward("dev-1")
		require.NoError(t, err)
	}
	_, err := rewards.ReferralReward("dev-1")
	assert.ErrorIs(t, err, ErrRewardLimit)

	balance, err := r.coins.Balance("dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
}

func TestDealReward(t *testing.T) {
	r := newRig(t)
	r.login(t, "dev-1")
	rewards := NewRewardLogic(r.txDAO, r.coins)

	balance, err := rewards.DealReward("dev-1")
	require.NoError(t, err)
	assert.Equal(t, int64(90), balance)
}

// Every mutation shows up in the journal, newest first, starting with the
// signup grant.
func TestHistoryJournalsEveryMutation(t *testing.T) {
	r := newRig(t)
	r.login(t, "dev-1")
	rewards := NewRewardLogic(r.txDAO, r.coins)

	_, err := rewards.Purchase("dev-1", "1")
	require.NoError(t, err)
	res, err := r.coins.TryDebit("dev-1", 15, "persona:1")
	require.NoError(t, err)
	require.True(t, res.OK)

	history, err := rewards.History("dev-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.TxKindDebit, history[0].Kind)
	assert.Equal(t, int64(115), history[0].BalanceAfter)
	assert.Equal(t, models.TxKindCredit, history[1].Kind)
	assert.Equal(t, "purchase:1", history[1].Reason)
	assert.Equal(t, models.TxKindGrant, history[2].Kind)
	assert.Equal(t, "signup", history[2].Reason)
}
