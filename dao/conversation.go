package dao

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/models"
)

// ConversationDAO handles conversation-related database operations
type ConversationDAO struct {
	db *gorm.DB
}

func NewConversationDAO(db *gorm.DB) *ConversationDAO {
	return &ConversationDAO{db: db}
}

// CreateConversation creates a new conversation
func (d *ConversationDAO) CreateConversation(userID string, personaID uint64) (*models.Conversation, error) {
	convo := &models.Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		PersonaID: personaID,
	}
	if err := d.db.Create(convo).Error; err != nil {
		return nil, err
	}
	return convo, nil
}

// GetConversationByID retrieves a conversation by id
func (d *ConversationDAO) GetConversationByID(id uuid.UUID) (*models.Conversation, error) {
	var convo models.Conversation
	if err := d.db.Where("id = ?", id).First(&convo).Error; err != nil {
		return nil, err
	}
	return &convo, nil
}

// GetConversation retrieves the conversation for a user and persona
func (d *ConversationDAO) GetConversation(userID string, personaID uint64) (*models.Conversation, error) {
	var convo models.Conversation
	if err := d.db.Where("user_id = ? AND persona_id = ?", userID, personaID).First(&convo).Error; err != nil {
		return nil, err
	}
	return &convo, nil
}

// GetConversationsByUserID retrieves all conversations for a user
func (d *ConversationDAO) GetConversationsByUserID(userID string) ([]models.Conversation, error) {
	var convos []models.Conversation
	if err := d.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&convos).Error; err != nil {
		return nil, err
	}
	return convos, nil
}
