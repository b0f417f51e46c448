//nolint:noctx // Test file uses http.NewRequest for simplicity
package complaints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campusvoice/campus-voice/internal/models"
	"github.com/campusvoice/campus-voice/internal/service/lifecycle"
	"github.com/campusvoice/campus-voice/pkg/logger"
)

// Mock Lifecycle Service
type mockLifecycleService struct {
	complaints map[string]*models.Complaint
	users      map[string]*models.UserAccount
	err        error // when set, every call fails with it
}

func newMockLifecycleService() *mockLifecycleService {
	return &mockLifecycleService{
		complaints: make(map[string]*models.Complaint),
		users:      make(map[string]*models.UserAccount),
	}
}

func (m *mockLifecycleService) SubmitComplaint(ctx context.Context, in lifecycle.SubmitInput) (*models.Complaint, error) {
	if m.err != nil {
		return nil, m.err
	}
	complaint := &models.Complaint{
		ID:       fmt.Sprintf("PRB-%03d", 500+len(m.complaints)),
		Title:    in.Title,
		Category: in.Category,
		Status:   models.StatusUnsolved,
	}
	m.complaints[complaint.ID] = complaint
	return complaint, nil
}

func (m *mockLifecycleService) InvestPoints(ctx context.Context, userID, complaintID string, amount int, idempotencyKey string) (*lifecycle.InvestResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	complaint, exists := m.complaints[complaintID]
	if !exists {
		return nil, models.ErrNotFound
	}
	complaint.PriorityPoints += amount
	return &lifecycle.InvestResult{Complaint: complaint, UpdatedBalance: 1000 - amount}, nil
}

func (m *mockLifecycleService) ChangeStatus(ctx context.Context, complaintID string, action models.Action, callerRole models.Role) (*models.Complaint, error) {
	if m.err != nil {
		return nil, m.err
	}
	complaint, exists := m.complaints[complaintID]
	if !exists {
		return nil, models.ErrNotFound
	}
	complaint.Status = models.StatusUnderInvestigation
	return complaint, nil
}

func (m *mockLifecycleService) PostReply(ctx context.Context, complaintID string, author lifecycle.ReplyAuthor, content string) (*models.Reply, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, exists := m.complaints[complaintID]; !exists {
		return nil, models.ErrNotFound
	}
	return &models.Reply{ID: "reply-1", ComplaintID: complaintID, AuthorName: author.Name, Content: content}, nil
}

func (m *mockLifecycleService) UpvoteReply(ctx context.Context, complaintID, replyID string) (*models.Reply, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, exists := m.complaints[complaintID]; !exists {
		return nil, models.ErrNotFound
	}
	return &models.Reply{ID: replyID, ComplaintID: complaintID, Upvotes: 1}, nil
}

func (m *mockLifecycleService) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	if m.err != nil {
		return nil, m.err
	}
	complaint, exists := m.complaints[id]
	if !exists {
		return nil, models.ErrNotFound
	}
	return complaint, nil
}

func (m *mockLifecycleService) ListComplaints(ctx context.Context, sortBy string) ([]models.Complaint, error) {
	if m.err != nil {
		return nil, m.err
	}
	complaints := make([]models.Complaint, 0, len(m.complaints))
	for _, c := range m.complaints {
		complaints = append(complaints, *c)
	}
	return complaints, nil
}

func (m *mockLifecycleService) Authenticate(ctx context.Context, identifier, secret string) (*models.UserAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Identifier() == identifier {
			return u, nil
		}
	}
	return nil, models.ErrAuthenticationFailed
}

func (m *mockLifecycleService) GetAccount(ctx context.Context, uid string) (*models.UserAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, exists := m.users[uid]
	if !exists {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func (m *mockLifecycleService) Register(ctx context.Context, in lifecycle.RegisterInput) (*models.UserAccount, error) {
	if m.err != nil {
		return nil, m.err
	}
	user := &models.UserAccount{UID: fmt.Sprintf("uid-%d", len(m.users)+1), Role: in.Role, FullName: in.FullName}
	if in.Role == models.RoleAdmin {
		user.Email = in.Identifier
	} else {
		user.StudentID = in.Identifier
	}
	m.users[user.UID] = user
	return user, nil
}

func (m *mockLifecycleService) ResetSemesterBudgets(ctx context.Context, budget int) error {
	return m.err
}

// Test Setup

func setupTestHandler() (*Handler, *mockLifecycleService) {
	service := newMockLifecycleService()
	log := logger.New("debug", "text", "stdout")
	handler := NewHandlerWithInterfaces(service, log)
	return handler, service
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Tests

func TestSubmitComplaint_Success(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler)

	w := doJSON(router, "POST", "/api/v1/complaints", gin.H{
		"title":    "Broken water cooler",
		"category": "Hostel",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.Complaint
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Broken water cooler", response.Title)
	assert.Equal(t, models.StatusUnsolved, response.Status)
	assert.Regexp(t, `^PRB-\d{3}$`, response.ID)
}

func TestSubmitComplaint_MissingTitle(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler)

	w := doJSON(router, "POST", "/api/v1/complaints", gin.H{"category": "Hostel"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitComplaint_ValidationError(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.err = fmt.Errorf("title is required: %w", models.ErrEmptyContent)

	w := doJSON(router, "POST", "/api/v1/complaints", gin.H{"title": "   "})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetComplaint_Success(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.complaints["PRB-500"] = &models.Complaint{
		ID:     "PRB-500",
		Title:  "Wifi down",
		Status: models.StatusUnsolved,
		StatusHistory: []models.StatusChange{
			{Status: models.StatusUnsolved, Timestamp: time.Now().UTC()},
		},
	}

	w := doJSON(router, "GET", "/api/v1/complaints/PRB-500", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Contains(t, response, "complaint")
	assert.Contains(t, response, "timeline")

	timeline := response["timeline"].([]interface{})
	assert.Len(t, timeline, 1)
}

func TestGetComplaint_NotFound(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler)

	w := doJSON(router, "GET", "/api/v1/complaints/PRB-999", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListComplaints(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.complaints["PRB-500"] = &models.Complaint{ID: "PRB-500", Title: "One"}
	service.complaints["PRB-501"] = &models.Complaint{ID: "PRB-501", Title: "Two"}

	w := doJSON(router, "GET", "/api/v1/complaints?sort=points", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, float64(2), response["total"])
}

func TestInvestPoints_Success(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.complaints["PRB-500"] = &models.Complaint{ID: "PRB-500", Title: "Wifi down"}

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/invest", gin.H{
		"user_id": "uid-1",
		"amount":  200,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response lifecycle.InvestResult
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 800, response.UpdatedBalance)
	assert.Equal(t, 200, response.Complaint.PriorityPoints)
}

func TestInvestPoints_InsufficientBalance(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.err = fmt.Errorf("amount 2000 exceeds balance 1000: %w", models.ErrInsufficientBalance)

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/invest", gin.H{
		"user_id": "uid-1",
		"amount":  2000,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInvestPoints_DuplicateAttempt(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.err = fmt.Errorf("attempt retry-1: %w", models.ErrDuplicateInvestment)

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/invest", gin.H{
		"user_id":         "uid-1",
		"amount":          100,
		"idempotency_key": "retry-1",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInvestPoints_AdminForbidden(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.err = fmt.Errorf("only students invest points: %w", models.ErrUnauthorized)

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/invest", gin.H{
		"user_id": "admin-1",
		"amount":  100,
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChangeStatus_Success(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.complaints["PRB-500"] = &models.Complaint{ID: "PRB-500", Status: models.StatusUnsolved}

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/status", gin.H{
		"action":      "approve",
		"caller_role": "admin",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.Complaint
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusUnderInvestigation, response.Status)
}

func TestChangeStatus_InvalidTransition(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.err = fmt.Errorf("action reopen from status %q: %w", models.StatusSolved, models.ErrInvalidTransition)

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/status", gin.H{
		"action":      "reopen",
		"caller_role": "student",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChangeStatus_WrongRole(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.err = fmt.Errorf("action approve requires role admin: %w", models.ErrUnauthorized)

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/status", gin.H{
		"action":      "approve",
		"caller_role": "student",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPostReply_Success(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.complaints["PRB-500"] = &models.Complaint{ID: "PRB-500"}

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/replies", gin.H{
		"author_name": "Dev",
		"content":     "Still broken as of this morning",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.Reply
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "Dev", response.AuthorName)
}

func TestPostReply_TooShort(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.err = fmt.Errorf("reply must be at least 10 characters: %w", models.ErrEmptyContent)

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/replies", gin.H{
		"author_name": "Dev",
		"content":     "short",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUpvoteReply(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.complaints["PRB-500"] = &models.Complaint{ID: "PRB-500"}

	w := doJSON(router, "POST", "/api/v1/complaints/PRB-500/replies/reply-1/upvote", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.Reply
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 1, response.Upvotes)

	w = doJSON(router, "POST", "/api/v1/complaints/PRB-999/replies/reply-1/upvote", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.users["uid-1"] = &models.UserAccount{UID: "uid-1", StudentID: "2023BCS001", Role: models.RoleStudent}

	w := doJSON(router, "POST", "/api/v1/auth/login", gin.H{
		"identifier": "2023BCS001",
		"secret":     "hunter2secret",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "POST", "/api/v1/auth/login", gin.H{
		"identifier": "nobody",
		"secret":     "hunter2secret",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegister(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	w := doJSON(router, "POST", "/api/v1/auth/register", gin.H{
		"identifier": "2023BCS001",
		"secret":     "hunter2secret",
		"role":       "student",
		"full_name":  "Priya",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response models.UserAccount
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "2023BCS001", response.StudentID)
	assert.Equal(t, models.RoleStudent, response.Role)

	// Duplicate identifiers surface as a conflict.
	service.err = fmt.Errorf("identifier 2023BCS001: %w", models.ErrDuplicateIdentifier)
	w = doJSON(router, "POST", "/api/v1/auth/register", gin.H{
		"identifier": "2023BCS001",
		"secret":     "other",
		"role":       "student",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetAccount(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	balance := 750
	service.users["uid-1"] = &models.UserAccount{UID: "uid-1", StudentID: "2023BCS001", Role: models.RoleStudent, PriorityPoints: &balance}

	w := doJSON(router, "GET", "/api/v1/users/uid-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response models.UserAccount
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 750, response.Balance())

	w = doJSON(router, "GET", "/api/v1/users/uid-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetBudgets(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler)

	w := doJSON(router, "POST", "/api/v1/admin/reset-budgets", gin.H{"budget": 1000})
	assert.Equal(t, http.StatusOK, w.Code)

	// Missing budget fails binding.
	w = doJSON(router, "POST", "/api/v1/admin/reset-budgets", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
