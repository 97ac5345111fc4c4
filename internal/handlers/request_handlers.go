package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stockflow/stockflow-golang/internal/models"
)

//
// --- Request Store Handlers ---
//
// These endpoints are the store side of the request lifecycle. The
// gating rules ("delete only when delivered", "placeOrder never
// reverts", "milestones stamp in order, once") are enforced HERE as
// well as in the admin client, because the store is the authority.
//

const requestColumns = `id, admin_id, product_code, product_name, image, requested_email,
	quantity, requested_quantity, requested, place_order,
	order_taken_date, order_send_date, reached_near_branch_date, delivered_date,
	show_button, created_at`

// scanRequest reads one row in requestColumns order.
func scanRequest(row interface{ Scan(...any) error }) (models.RequestRecord, error) {
	var r models.RequestRecord
	var taken, sent, near, delivered sql.NullTime

	err := row.Scan(
		&r.ID, &r.AdminID, &r.ProductCode, &r.ProductName, &r.Image, &r.RequestedEmail,
		&r.Quantity, &r.RequestedQuantity, &r.Requested, &r.PlaceOrder,
		&taken, &sent, &near, &delivered,
		&r.ShowButton, &r.CreatedAt,
	)
	if err != nil {
		return r, err
	}

	if taken.Valid {
		r.OrderTakenDate = &taken.Time
	}
	if sent.Valid {
		r.OrderSendDate = &sent.Time
	}
	if near.Valid {
		r.ReachedNearBranchDate = &near.Time
	}
	if delivered.Valid {
		r.DeliveredDate = &delivered.Time
	}
	return r, nil
}

// GetRequests is the handler for GET /api/requests/:adminId.
// It returns every request in the administrator's scope.
func (h *Handlers) GetRequests(c *gin.Context) {
	// 1. --- Check the Scope ---
	// The path names a scope; it must be the authenticated admin's own.
	adminID_raw, _ := c.Get("adminID")
	adminID := adminID_raw.(int64)
	if c.Param("adminId") != fmt.Sprintf("%d", adminID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only list your own requests"})
		return
	}

	// 2. --- Fetch the Records ---
	query := `SELECT ` + requestColumns + ` FROM requests WHERE admin_id = ? ORDER BY created_at ASC`
	rows, err := h.DB.Query(query, adminID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch requests"})
		return
	}
	defer rows.Close()

	requests := []models.RequestRecord{}
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan request"})
			return
		}
		requests = append(requests, rec)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// CreateRequestInput is the payload for filing a new stock request.
type CreateRequestInput struct {
	ProductCode       string `json:"productCode" binding:"required"`
	ProductName       string `json:"productName" binding:"required"`
	Image             []byte `json:"image"` // base64 in JSON
	RequestedEmail    string `json:"requestedEmail" binding:"required,email"`
	Quantity          int    `json:"quantity" binding:"min=0"`
	RequestedQuantity int    `json:"requestedQuantity" binding:"required,min=1"`
	Requested         bool   `json:"requested"`
}

// CreateRequest is the handler for POST /api/requests.
// This is where a RequestRecord is born; the store assigns the ID and
// the admin client only ever observes it afterwards.
func (h *Handlers) CreateRequest(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	adminID_raw, _ := c.Get("adminID")
	adminID := adminID_raw.(int64)

	// 2. --- Build the Record ---
	rec := models.RequestRecord{
		ID:                uuid.NewString(),
		AdminID:           adminID,
		ProductCode:       input.ProductCode,
		ProductName:       input.ProductName,
		Image:             input.Image,
		RequestedEmail:    input.RequestedEmail,
		Quantity:          input.Quantity,
		RequestedQuantity: input.RequestedQuantity,
		Requested:         input.Requested,
		ShowButton:        true, // "Place Order" is available until an order is placed
		CreatedAt:         time.Now(),
	}

	// 3. --- Save to Database ---
	_, err := h.DB.Exec(`
		INSERT INTO requests (id, admin_id, product_code, product_name, image, requested_email,
			quantity, requested_quantity, requested, place_order, show_button, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, TRUE, ?)`,
		rec.ID, rec.AdminID, rec.ProductCode, rec.ProductName, rec.Image, rec.RequestedEmail,
		rec.Quantity, rec.RequestedQuantity, rec.Requested, rec.CreatedAt,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create request"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "request": rec})
}

// UpdateRequestField is the handler for PATCH /api/request/:id.
// The body holds exactly the fields to set, e.g. {"orderSendDate": true}.
// Booleans are monotonic; milestone dates are stamped with the store's
// clock, in order, and never re-stamped (a repeat set is a no-op success).
func (h *Handlers) UpdateRequestField(c *gin.Context) {
	id := c.Param("id")

	// 1. --- Bind the Patch Body ---
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	// 2. --- Load the Current Record (scoped to the caller) ---
	adminID_raw, _ := c.Get("adminID")
	adminID := adminID_raw.(int64)

	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ? AND admin_id = ?`
	rec, err := scanRequest(h.DB.QueryRow(query, id, adminID))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch request"})
		return
	}

	// 3. --- Validate & Apply Each Field ---
	now := time.Now()
	updates := map[string]any{} // column -> value

	for name, value := range patch {
		switch {
		case name == "requested" || name == "placeOrder":
			flag, ok := value.(bool)
			if !ok || !flag {
				// Monotonic: these flags only ever go false -> true.
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("'%s' can only be set to true", name)})
				return
			}
			if name == "requested" {
				updates["requested"] = true
			} else {
				updates["place_order"] = true
				updates["show_button"] = false
			}

		case models.IsDateField(name):
			field := models.DateField(name)
			if rec.Date(field) != nil {
				// Already stamped: immutable, and a retry is a no-op success.
				continue
			}
			if err := checkStageOrder(&rec, field); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			updates[field.Column()] = now
			rec.SetDate(field, now) // so a multi-field patch stays ordered

		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Field '%s' cannot be updated", name)})
			return
		}
	}

	if len(updates) == 0 {
		// Everything requested was already true/stamped.
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	// 4. --- Write the Update ---
	setClause := ""
	args := []any{}
	for column, value := range updates {
		if setClause != "" {
			setClause += ", "
		}
		setClause += column + " = ?"
		args = append(args, value)
	}
	args = append(args, id)

	if _, err := h.DB.Exec("UPDATE requests SET "+setClause+" WHERE id = ?", args...); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// checkStageOrder rejects stamping a milestone whose predecessors are
// missing. The booleans are the earliest stages of all.
func checkStageOrder(rec *models.RequestRecord, field models.DateField) error {
	if !rec.Requested || !rec.PlaceOrder {
		return fmt.Errorf("cannot set %s before the order is confirmed", field)
	}
	for _, f := range models.DateFields {
		if f == field {
			return nil
		}
		if rec.Date(f) == nil {
			return fmt.Errorf("cannot set %s before %s", field, f)
		}
	}
	return nil
}

// ConfirmOrder is the handler for POST /api/confirm-order/:id.
// This is the dedicated order-confirmation transition: distinct from the
// generic field patch because it has downstream side effects (an event
// for the fulfillment pipeline). Confirming an already-confirmed order
// is a success no-op, so retries are safe.
func (h *Handlers) ConfirmOrder(c *gin.Context) {
	id := c.Param("id")

	adminID_raw, _ := c.Get("adminID")
	adminID := adminID_raw.(int64)

	// 1. --- Load the Record ---
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = ? AND admin_id = ?`
	rec, err := scanRequest(h.DB.QueryRow(query, id, adminID))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch request"})
		return
	}

	// 2. --- Idempotency Check ---
	if rec.PlaceOrder {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order already confirmed."})
		return
	}

	// 3. --- Flip the Flag ---
	_, err = h.DB.Exec(
		"UPDATE requests SET place_order = TRUE, show_button = FALSE WHERE id = ?", id,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm order"})
		return
	}
	rec.PlaceOrder = true
	rec.ShowButton = false

	// 4. --- Notify Downstream Fulfillment ---
	// A broker outage must not fail the confirmation; the flag is
	// already durable in the database.
	if err := h.Events.OrderConfirmed(c.Request.Context(), &rec); err != nil {
		log.Printf("Failed to publish order-confirmed event for %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Order confirmed successfully."})
}

// DeleteRequest is the handler for DELETE /api/request/delete/:productCode/:email.
// Deletion is keyed by productCode + requestedEmail and is only legal
// once the request has reached its terminal stage.
func (h *Handlers) DeleteRequest(c *gin.Context) {
	productCode := c.Param("productCode")
	email := c.Param("email")

	adminID_raw, _ := c.Get("adminID")
	adminID := adminID_raw.(int64)

	// 1. --- Check the Terminal-Stage Gate ---
	var delivered sql.NullTime
	err := h.DB.QueryRow(
		"SELECT delivered_date FROM requests WHERE product_code = ? AND requested_email = ? AND admin_id = ?",
		productCode, email, adminID,
	).Scan(&delivered)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch request"})
		return
	}
	if !delivered.Valid {
		c.JSON(http.StatusConflict, gin.H{"error": "request is not delivered yet"})
		return
	}

	// 2. --- Delete by Compound Key ---
	_, err = h.DB.Exec(
		"DELETE FROM requests WHERE product_code = ? AND requested_email = ? AND admin_id = ?",
		productCode, email, adminID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Request deleted successfully."})
}
