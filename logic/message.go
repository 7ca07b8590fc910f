package logic

import (
	"context"
	"errors"
	"log"
	"math/rand"

	"github.com/google/uuid"

	"github.com/achilles-kt/solace-app/dao"
	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/metering"
	"github.com/achilles-kt/solace-app/models"
	"github.com/achilles-kt/solace-app/pkg"
)

// FallbackReply is shown when the responder fails. Billing is time and
// message based, so a responder failure never affects the ledger.
const FallbackReply = "I'm having trouble connecting."

var (
	// ErrNotConversationOwner is returned when a user touches a
	// conversation that is not theirs.
	ErrNotConversationOwner = errors.New("conversation does not belong to user")
	// ErrNoActiveSession is returned when a message arrives for an
	// engagement that was never opened or has terminated.
	ErrNoActiveSession = errors.New("no active session for this conversation")
	// ErrMessageNotLocked is returned when unlocking an already open message.
	ErrMessageNotLocked = errors.New("message is not locked")
)

// MessageLogic handles message-related business logic
type MessageLogic struct {
	convoDAO   *dao.ConversationDAO
	messageDAO *dao.MessageDAO
	personaDAO *dao.PersonaDAO
	coins      *ledger.Ledger
	manager    *metering.Manager
	responder  pkg.Responder

	maxHistory int
	imageOdds  float64
	rng        *rand.Rand
}

func NewMessageLogic(
	convoDAO *dao.ConversationDAO,
	messageDAO *dao.MessageDAO,
	personaDAO *dao.PersonaDAO,
	coins *ledger.Ledger,
	manager *metering.Manager,
	responder pkg.Responder,
	maxHistory int,
) *MessageLogic {
	if maxHistory <= 0 {
		maxHistory = 5
	}
	return &MessageLogic{
		convoDAO:   convoDAO,
		messageDAO: messageDAO,
		personaDAO: personaDAO,
		coins:      coins,
		manager:    manager,
		responder:  responder,
		maxHistory: maxHistory,
		imageOdds:  0.3,
		rng:        rand.New(rand.NewSource(rand.Int63())),
	}
}

// SendMessage charges the per-message tariff, calls the responder and
// persists both sides of the exchange. The charge happens before anything is
// sent or saved: a failed debit means no message. A responder failure
// degrades to the fallback reply.
func (l *MessageLogic) SendMessage(ctx context.Context, userID string, conversationID uuid.UUID, ask string, streamHandler func(string)) (*models.Message, error) {
	convo, err := l.convoDAO.GetConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if convo.UserID != userID {
		return nil, ErrNotConversationOwner
	}

	persona, err := l.personaDAO.GetPersonaByID(convo.PersonaID)
	if err != nil {
		return nil, err
	}

	session, ok := l.manager.Lookup(userID, convo.PersonaID)
	if !ok {
		return nil, ErrNoActiveSession
	}
	if err := session.ChargeMessage(); err != nil {
		return nil, err
	}

	messages, err := l.messageDAO.GetMessagesByConversationID(conversationID)
	if err != nil {
		return nil, err
	}
	history := l.recentHistory(messages)

	reply, err := l.responder.Respond(ctx, persona.SystemPrompt, history, ask, streamHandler)
	if err != nil {
		log.Printf("responder failed for conversation %s: %v", conversationID, err)
		reply = FallbackReply
		if streamHandler != nil {
			streamHandler(reply)
		}
	}

	if _, err := l.messageDAO.CreateMessage(conversationID, "user", ask); err != nil {
		return nil, err
	}
	answer, err := l.messageDAO.CreateMessage(conversationID, "assistant", reply)
	if err != nil {
		return nil, err
	}

	// Occasionally the persona follows up with a locked photo.
	if persona.UnlockPrice > 0 && persona.ImageURL != "" && l.rng.Float64() < l.imageOdds {
		if _, err := l.messageDAO.CreateImageMessage(conversationID, persona.ImageURL, persona.UnlockPrice); err != nil {
			log.Printf("failed to create image message: %v", err)
		}
	}

	return answer, nil
}

// GetConversationMessages retrieves all messages in a conversation
func (l *MessageLogic) GetConversationMessages(userID string, conversationID uuid.UUID) ([]models.Message, error) {
	convo, err := l.convoDAO.GetConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if convo.UserID != userID {
		return nil, ErrNotConversationOwner
	}
	return l.messageDAO.GetMessagesByConversationID(conversationID)
}

// UnlockMessage spends coins to reveal a locked image message. The deduction
// routes through TryDebit like every other spend; on insufficient funds the
// message stays locked.
func (l *MessageLogic) UnlockMessage(userID string, messageID uint64) (*models.Message, error) {
	msg, err := l.messageDAO.GetMessageByID(messageID)
	if err != nil {
		return nil, err
	}
	convo, err := l.convoDAO.GetConversationByID(msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if convo.UserID != userID {
		return nil, ErrNotConversationOwner
	}
	if !msg.Locked {
		return nil, ErrMessageNotLocked
	}

	res, err := l.coins.TryDebit(userID, msg.UnlockCost, "unlock")
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, metering.ErrInsufficientCoins
	}

	if err := l.messageDAO.UnlockMessage(messageID); err != nil {
		return nil, err
	}
	msg.Locked = false
	return msg, nil
}

func (l *MessageLogic) recentHistory(messages []models.Message) []pkg.RequestMessage {
	start := 0
	if len(messages) > l.maxHistory {
		start = len(messages) - l.maxHistory
	}
	var history []pkg.RequestMessage
	for _, msg := range messages[start:] {
		if msg.Type != models.MessageTypeText {
			continue
		}
		history = append(history, pkg.RequestMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return history
}
