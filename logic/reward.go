package logic

import (
	"errors"
	"time"

	"github.com/achilles-kt/solace-app/config"
	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/models"
)

var (
	// ErrUnknownPack is returned for an unknown coin pack id.
	ErrUnknownPack = errors.New("unknown coin pack")
	// ErrRewardLimit is returned when a reward's cap is exhausted.
	ErrRewardLimit = errors.New("reward limit reached")
)

// Reward journal reasons
const (
	ReasonAdReward = "ad-reward"
	ReasonReferral = "referral"
	ReasonDeal     = "deal"
)

// CoinPack is a purchasable coin bundle
type CoinPack struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Price  string `json:"price"`
}

// DefaultCoinPacks mirrors the packs offered in the store screen
var DefaultCoinPacks = []CoinPack{
	{ID: "1", Amount: 100, Price: "₹99"},
	{ID: "2", Amount: 500, Price: "₹399"},
	{ID: "3", Amount: 1000, Price: "₹699"},
	{ID: "4", Amount: 2500, Price: "₹1499"},
}

// RewardLogic handles every top-up flow: pack purchases, ad rewards,
// referral rewards and the low-balance deal. All of them route through
// Ledger.Credit and are journaled with a reason, which is also how the
// per-day and lifetime caps are enforced.
type RewardLogic struct {
	txDAO *dao.CoinTransactionDAO
	coins *ledger.Ledger
	packs []CoinPack
}

func NewRewardLogic(
	txDAO *dao.CoinTransactionDAO,
	coins *ledger.Ledger,
) *RewardLogic {
	return &RewardLogic{
		txDAO: txDAO,
		coins: coins,
		packs: DefaultCoinPacks,
	}
}

// Packs lists the purchasable coin packs
func (l *RewardLogic) Packs() []CoinPack {
	return l.packs
}

// Purchase credits a coin pack after payment. Payment processing itself is
// handled by the store platform; this runs post-payment.
func (l *RewardLogic) Purchase(userID, packID string) (int64, error) {
	for _, pack := range l.packs {
		if pack.ID == packID {
			return l.coins.Credit(userID, pack.Amount, "purchase:"+packID)
		}
	}
	return 0, ErrUnknownPack
}

// AdReward credits the ad-watch reward, capped per rolling day
func (l *RewardLogic) AdReward(userID string) (int64, error) {
	cfg := config.GlobalConfig.Billing
	since := time.Now().Add(-24 * time.Hour)
	n, err := l.txDAO.CountByReasonSince(userID, ReasonAdReward, since)
	if err != nil {
		return 0, err
	}
	if n >= cfg.AdDailyLimit {
		return 0, ErrRewardLimit
	}
	return l.coins.Credit(userID, cfg.AdReward, ReasonAdReward)
}

// ReferralReward credits the invite reward, capped per account lifetime
func (l *RewardLogic) ReferralReward(userID string) (int64, error) {
	cfg := config.GlobalConfig.Billing
	n, err := l.txDAO.CountByReason(userID, ReasonReferral)
	if err != nil {
		return 0, err
	}
	if n >= cfg.ReferralLimit {
		return 0, ErrRewardLimit
	}
	return l.coins.Credit(userID, cfg.ReferralReward, ReasonReferral)
}

// DealReward credits the low-balance nudge deal
func (l *RewardLogic) DealReward(userID string) (int64, error) {
	return l.coins.Credit(userID, config.GlobalConfig.Billing.DealReward, ReasonDeal)
}

// History returns the user's recent coin transactions
func (l *RewardLogic) History(userID string, limit int) ([]models.CoinTransaction, error) {
	return l.txDAO.GetByUserID(userID, limit)
}
