package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stockflow/stockflow-golang/internal/auth"
	"github.com/stockflow/stockflow-golang/internal/models"
)

//
// --- Admin Account Handlers ---
//

// We define a struct to hold the *input* from the caller.
// This is separate from our main 'models.Admin' struct because
// we don't want to accept an 'id' or a password hash from the caller.
type RegisterAdminInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterAdmin is the handler for POST /api/admin/register.
func (h *Handlers) RegisterAdmin(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RegisterAdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Hash the Password ---
	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	// 3. --- Save to Database ---
	admin := &models.Admin{
		Email:        input.Email,
		PasswordHash: password.Hash,
		FullName:     input.FullName,
		CreatedAt:    time.Now(),
	}

	result, err := h.DB.Exec(
		"INSERT INTO admins (email, password_hash, full_name, created_at) VALUES (?, ?, ?, ?)",
		admin.Email, admin.PasswordHash, admin.FullName, admin.CreatedAt,
	)
	if err != nil {
		// Most likely a duplicate email (unique index).
		c.JSON(http.StatusConflict, gin.H{"error": "An admin with this email already exists"})
		return
	}
	admin.ID, _ = result.LastInsertId()

	// 4. --- Send Success Response ---
	// Gin respects the 'json:"-"' tag on the password hash.
	c.JSON(http.StatusCreated, gin.H{
		"message": "Admin registered successfully.",
		"admin":   admin,
	})
}

// Login is the handler for POST /api/admin/login.
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// 2. --- Look Up the Admin ---
	var admin models.Admin
	err := h.DB.QueryRow(
		"SELECT id, email, password_hash, full_name FROM admins WHERE email = ?",
		input.Email,
	).Scan(&admin.ID, &admin.Email, &admin.PasswordHash, &admin.FullName)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same message as a bad password, so callers can't probe for accounts.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up admin"})
		return
	}

	// 3. --- Check the Password ---
	password := models.Password{Hash: admin.PasswordHash}
	matches, err := password.Matches(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify password"})
		return
	}
	if !matches {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	// 4. --- Issue the Token ---
	token, err := auth.GenerateToken(admin.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"adminId": admin.ID,
	})
}
