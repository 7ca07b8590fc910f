package logic

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/metering"
)

// ErrSessionNotFound is returned for an unknown or foreign session id.
var ErrSessionNotFound = errors.New("session not found")

// CallLogic handles voice-call engagements. A call session models setup
// latency: it opens in connecting, bills nothing until the client reports
// the call connected, then drains the per-minute price smoothly per second.
type CallLogic struct {
	personaDAO *dao.PersonaDAO
	coins      *ledger.Ledger
	manager    *metering.Manager
}

func NewCallLogic(
	personaDAO *dao.PersonaDAO,
	coins *ledger.Ledger,
	manager *metering.Manager,
) *CallLogic {
	return &CallLogic{
		personaDAO: personaDAO,
		coins:      coins,
		manager:    manager,
	}
}

// StartCall opens a call session in the connecting state
func (l *CallLogic) StartCall(userID string, personaID uint64) (*metering.Session, error) {
	// Same bootstrap rule as conversations: no session without an
	// initialized ledger account.
	if _, err := l.coins.Initialize(userID); err != nil {
		return nil, fmt.Errorf("bootstrap account: %w", err)
	}

	persona, err := l.personaDAO.GetPersonaByID(personaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonaUnavailable
		}
		return nil, err
	}
	if !persona.IsActive {
		return nil, ErrPersonaUnavailable
	}
	return l.manager.Open(userID, personaID, CallTariff(persona))
}

// ConnectCall reports call setup finished; billing starts here
func (l *CallLogic) ConnectCall(userID string, sessionID uuid.UUID) error {
	session, err := l.ownSession(userID, sessionID)
	if err != nil {
		return err
	}
	return session.Connect()
}

// Hangup terminates the call session
func (l *CallLogic) Hangup(userID string, sessionID uuid.UUID) error {
	session, err := l.ownSession(userID, sessionID)
	if err != nil {
		return err
	}
	session.Close()
	return nil
}

// Events subscribes to a call session's event stream
func (l *CallLogic) Events(userID string, sessionID uuid.UUID) (<-chan metering.Event, error) {
	session, err := l.ownSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Subscribe(), nil
}

func (l *CallLogic) ownSession(userID string, sessionID uuid.UUID) (*metering.Session, error) {
	session, ok := l.manager.Get(sessionID)
	if !ok || session.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}
