package logic

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/metering"
	"github.com/achilles-kt/solace-app/models"
)

// ErrPersonaUnavailable is returned for unknown or inactive personas.
var ErrPersonaUnavailable = errors.New("persona not available")

// ConversationLogic handles conversation-related business logic
type ConversationLogic struct {
	personaDAO *dao.PersonaDAO
	convoDAO   *dao.ConversationDAO
	coins      *ledger.Ledger
	manager    *metering.Manager
}

func NewConversationLogic(
	personaDAO *dao.PersonaDAO,
	convoDAO *dao.ConversationDAO,
	coins *ledger.Ledger,
	manager *metering.Manager,
) *ConversationLogic {
	return &ConversationLogic{
		personaDAO: personaDAO,
		convoDAO:   convoDAO,
		coins:      coins,
		manager:    manager,
	}
}

// OpenConversation finds or creates the user's conversation with a persona
// and opens its metering session with the persona's chat tariff. Text chat
// has no call setup, so the session connects immediately and the per-minute
// drain starts now.
func (l *ConversationLogic) OpenConversation(userID string, personaID uint64) (*models.Conversation, *metering.Session, error) {
	// A valid token may outlive the in-memory account, e.g. after a
	// restart. The session may only bill an initialized account.
	if _, err := l.coins.Initialize(userID); err != nil {
		return nil, nil, fmt.Errorf("bootstrap account: %w", err)
	}

	persona, err := l.personaDAO.GetPersonaByID(personaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPersonaUnavailable
		}
		return nil, nil, err
	}
	if !persona.IsActive {
		return nil, nil, ErrPersonaUnavailable
	}

	convo, err := l.convoDAO.GetConversation(userID, personaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		convo, err = l.convoDAO.CreateConversation(userID, personaID)
	}
	if err != nil {
		return nil, nil, err
	}

	session, err := l.manager.Open(userID, personaID, ChatTariff(persona))
	if err != nil {
		return nil, nil, err
	}
	if err := session.Connect(); err != nil {
		return nil, nil, err
	}
	return convo, session, nil
}

// CloseConversation terminates the metering session for a persona engagement
func (l *ConversationLogic) CloseConversation(userID string, personaID uint64) {
	if session, ok := l.manager.Lookup(userID, personaID); ok {
		session.Close()
	}
}

// GetConversations retrieves all conversations for a user
func (l *ConversationLogic) GetConversations(userID string) ([]models.Conversation, error) {
	return l.convoDAO.GetConversationsByUserID(userID)
}

// ChatTariff is the persona's cost model for a text engagement: the
// per-minute drain charged in whole-minute intervals, plus any per-message
// rate.
func ChatTariff(p *models.Persona) metering.Tariff {
	return metering.Tariff{
		CoinsPerInterval: p.PricePerMin,
		Interval:         time.Minute,
		CoinsPerMessage:  p.PricePerMessage,
	}
}

// CallTariff is the persona's cost model for a voice engagement: the same
// per-minute price, drained smoothly per second so hangups are not charged
// a full minute.
func CallTariff(p *models.Persona) metering.Tariff {
	return metering.Tariff{
		CoinsPerInterval: p.PricePerMin,
		Interval:         time.Minute,
		SmoothDrain:      true,
		DrainTick:        time.Second,
	}
}
