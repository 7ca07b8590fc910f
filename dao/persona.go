package dao

import (
	"gorm.io/gorm"

	"github.com/achilles-kt/solace-app/models"
)

// PersonaDAO handles persona catalog database operations
type PersonaDAO struct {
	db *gorm.DB
}

func NewPersonaDAO(db *gorm.DB) *PersonaDAO {
	return &PersonaDAO{db: db}
}

// GetActivePersonas retrieves all active personas
func (d *PersonaDAO) GetActivePersonas() ([]models.Persona, error) {
	var personas []models.Persona
	if err := d.db.Where("is_active = ?", true).Order("id ASC").Find(&personas).Error; err != nil {
		return nil, err
	}
	return personas, nil
}

// GetPersonaByID retrieves a persona by id
func (d *PersonaDAO) GetPersonaByID(id uint64) (*models.Persona, error) {
	var persona models.Persona
	if err := d.db.First(&persona, id).Error; err != nil {
		return nil, err
	}
	return &persona, nil
}

// Count returns the number of personas in the catalog
func (d *PersonaDAO) Count() (int64, error) {
	var n int64
	if err := d.db.Model(&models.Persona{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Seed inserts the given personas
func (d *PersonaDAO) Seed(personas []models.Persona) error {
	return d.db.Create(&personas).Error
}
