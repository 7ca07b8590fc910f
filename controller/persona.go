package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/achilles-kt/solace-app/dao"
)

// PersonaController handles HTTP requests
type PersonaController struct {
	personaDAO *dao.PersonaDAO
}

func NewPersonaController(personaDAO *dao.PersonaDAO) *PersonaController {
	return &PersonaController{personaDAO: personaDAO}
}

// GetPersonas handles GET /personas
func (c *PersonaController) GetPersonas(ctx *gin.Context) {
	personas, err := c.personaDAO.GetActivePersonas()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, personas)
}
