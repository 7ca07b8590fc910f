package dao

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/models"
)

// MessageDAO handles message-related database operations
type MessageDAO struct {
	db *gorm.DB
}

func NewMessageDAO(db *gorm.DB) *MessageDAO {
	return &MessageDAO{db: db}
}

// CreateMessage adds a text message to a conversation
func (d *MessageDAO) CreateMessage(conversationID uuid.UUID, role, content string) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conversationID,
		Role:           role,
		Type:           models.MessageTypeText,
		Content:        content,
	}
	if err := d.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateImageMessage adds a locked image message to a conversation
func (d *MessageDAO) CreateImageMessage(conversationID uuid.UUID, imageURL string, unlockCost int64) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conversationID,
		Role:           "assistant",
		Type:           models.MessageTypeImage,
		Content:        "Sent a photo",
		ImageURL:       imageURL,
		Locked:         true,
		UnlockCost:     unlockCost,
	}
	if err := d.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessageByID retrieves a message by id
func (d *MessageDAO) GetMessageByID(id uint64) (*models.Message, error) {
	var msg models.Message
	if err := d.db.First(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// UnlockMessage clears the locked flag on a message
func (d *MessageDAO) UnlockMessage(id uint64) error {
	return d.db.Model(&models.Message{}).
		Where("id = ?", id).
		Update("locked", false).Error
}

// GetMessagesByConversationID retrieves all messages in a conversation
func (d *MessageDAO) GetMessagesByConversationID(conversationID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	if err := d.db.Where("conversation_id = ?", conversationID).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
