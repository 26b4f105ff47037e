package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgard/roastme/internal/database"
)

type traitRequest struct {
	Name        string `json:"name"        binding:"required,max=50"`
	Category    string `json:"category"    binding:"required"`
	Description string `json:"description" binding:"max=200"`
}

type personRequest struct {
	Name       string   `json:"name"       binding:"required,max=100"`
	SkinColor  string   `json:"skinColor"  binding:"max=50"`
	AnimalType string   `json:"animalType" binding:"max=50"`
	Traits     []string `json:"traits"`
}

func (r *traitRequest) trim() { trimAll(&r.Name, &r.Category, &r.Description) }

func (r *personRequest) trim() { trimAll(&r.Name, &r.SkinColor, &r.AnimalType) }

func (r *personRequest) person(ownerID, id string) *database.Person {
	return &database.Person{
		ID:         id,
		OwnerID:    ownerID,
		Name:       r.Name,
		SkinColor:  r.SkinColor,
		AnimalType: r.AnimalType,
	}
}

// NewListTraitsHandler serves GET /api/traits.
func NewListTraitsHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		traits, err := deps.Store.ListTraits(c.Request.Context())
		if err != nil {
			fail(c, http.StatusInternalServerError, "Error fetching traits")
			return
		}
		c.JSON(http.StatusOK, traits)
	}
}

// NewCreateTraitHandler serves POST /api/traits.
func NewCreateTraitHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req traitRequest
		if err := bindTrimmed(c, &req); err != nil {
			bindFailed(c, err)
			return
		}
		if !database.IsValidTraitCategory(req.Category) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":    false,
				"message":    "Invalid trait category",
				"categories": database.TraitCategories,
			})
			return
		}

		trait := &database.Trait{Name: req.Name, Category: req.Category, Description: req.Description}
		if err := deps.Store.CreateTrait(c.Request.Context(), trait); err != nil {
			fail(c, http.StatusInternalServerError, "Error creating trait")
			return
		}
		c.JSON(http.StatusCreated, trait)
	}
}

// NewListPersonsHandler serves GET /api/persons.
func NewListPersonsHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		persons, err := deps.Store.ListPersons(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			fail(c, http.StatusInternalServerError, "Error fetching persons")
			return
		}
		c.JSON(http.StatusOK, persons)
	}
}

// NewCreatePersonHandler serves POST /api/persons.
func NewCreatePersonHandler(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("handler", "create_person")

	return func(c *gin.Context) {
		var req personRequest
		if err := bindTrimmed(c, &req); err != nil {
			bindFailed(c, err)
			return
		}

		person := req.person(currentUser(c).ID, "")
		if err := deps.Store.CreatePerson(c.Request.Context(), person, req.Traits); err != nil {
			if errors.Is(err, database.ErrUnknownTrait) {
				fail(c, http.StatusBadRequest, "Unknown trait")
				return
			}
			log.ErrorContext(c.Request.Context(), "Failed to create person", "error", err)
			fail(c, http.StatusInternalServerError, "Error creating person")
			return
		}
		c.JSON(http.StatusCreated, person)
	}
}

// NewGetPersonHandler serves GET /api/persons/:id.
func NewGetPersonHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		person, err := deps.Store.GetPerson(c.Request.Context(), currentUser(c).ID, c.Param("id"))
		if err != nil {
			fail(c, http.StatusInternalServerError, "Error fetching person")
			return
		}
		if person == nil {
			fail(c, http.StatusNotFound, "Person not found")
			return
		}
		c.JSON(http.StatusOK, person)
	}
}

// NewUpdatePersonHandler serves PUT /api/persons/:id.
func NewUpdatePersonHandler(deps HandlerDeps) gin.HandlerFunc {
	log := deps.Logger.With("handler", "update_person")

	return func(c *gin.Context) {
		var req personRequest
		if err := bindTrimmed(c, &req); err != nil {
			bindFailed(c, err)
			return
		}

		person := req.person(currentUser(c).ID, c.Param("id"))
		if err := deps.Store.UpdatePerson(c.Request.Context(), person, req.Traits); err != nil {
			switch {
			case errors.Is(err, database.ErrNotFound):
				fail(c, http.StatusNotFound, "Person not found")
			case errors.Is(err, database.ErrUnknownTrait):
				fail(c, http.StatusBadRequest, "Unknown trait")
			default:
				log.ErrorContext(c.Request.Context(), "Failed to update person", "error", err)
				fail(c, http.StatusInternalServerError, "Error updating person")
			}
			return
		}
		c.JSON(http.StatusOK, person)
	}
}

// NewDeletePersonHandler serves DELETE /api/persons/:id.
func NewDeletePersonHandler(deps HandlerDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := deps.Store.DeletePerson(c.Request.Context(), currentUser(c).ID, c.Param("id"))
		switch {
		case errors.Is(err, database.ErrNotFound):
			fail(c, http.StatusNotFound, "Person not found")
		case err != nil:
			fail(c, http.StatusInternalServerError, "Error deleting person")
		default:
			c.JSON(http.StatusOK, gin.H{"message": "Person deleted successfully"})
		}
	}
}
