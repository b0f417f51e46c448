// Package lifecycle implements the complaint lifecycle engine: it
// validates and applies status transitions, point investments, and
// discussion replies on top of the complaint store and the user ledger.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusvoice/campus-voice/internal/cache"
	"github.com/campusvoice/campus-voice/internal/metrics"
	"github.com/campusvoice/campus-voice/internal/models"
	"github.com/campusvoice/campus-voice/internal/repository"
	"github.com/campusvoice/campus-voice/pkg/logger"
)

// How many random PRB-### candidates to try before giving up. The ID
// space has 900 slots, matching the original platform's format.
const maxIDAttempts = 25

// ComplaintStore interface for complaint persistence operations.
type ComplaintStore interface {
	Create(complaint *models.Complaint) error
	GetByID(id string) (*models.Complaint, error)
	List(sortBy string) ([]models.Complaint, error)
	UpdateWithLock(id string, mutate func(*models.Complaint) error) (*models.Complaint, error)
	UpvoteReply(complaintID, replyID string) (*models.Reply, error)
}

// UserLedger interface for account and balance operations.
type UserLedger interface {
	Create(user *models.UserAccount) error
	GetByUID(uid string) (*models.UserAccount, error)
	FindByCredential(identifier, secret string) (*models.UserAccount, error)
	ResetSemesterBudgets(budget int) (int64, error)
	ListStudents() ([]models.UserAccount, error)
}

// PointTransfer interface for the atomic balance-to-complaint transfer.
type PointTransfer interface {
	Transfer(userID, complaintID string, amount int, idempotencyKey string) (*repository.TransferResult, error)
}

// ComplaintCache interface for the optional read cache decorator.
type ComplaintCache interface {
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	SetComplaint(ctx context.Context, complaint *models.Complaint) error
	GetList(ctx context.Context, sortBy string) ([]models.Complaint, error)
	SetList(ctx context.Context, sortBy string, complaints []models.Complaint) error
	Invalidate(ctx context.Context, complaintIDs ...string) error
}

// Config carries the policy knobs the engine enforces.
type Config struct {
	SemesterBudget int // points granted to each student per semester
	MinReplyLength int // replies shorter than this (trimmed) are rejected
}

// Service is the lifecycle engine.
type Service struct {
	complaints ComplaintStore
	users      UserLedger
	transfers  PointTransfer
	cache      ComplaintCache
	cfg        Config
	log        *logger.Logger
}

// NewService creates a new lifecycle service with concrete repository
// types. complaintCache may be nil to run without Redis.
func NewService(
	complaints *repository.ComplaintRepository,
	users *repository.UserRepository,
	transfers *repository.InvestmentRepository,
	complaintCache *cache.ComplaintCache,
	cfg Config,
	log *logger.Logger,
) *Service {
	var cc ComplaintCache
	if complaintCache != nil {
		cc = complaintCache
	}
	return newService(complaints, users, transfers, cc, cfg, log)
}

// NewServiceWithInterfaces creates a new lifecycle service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	complaints ComplaintStore,
	users UserLedger,
	transfers PointTransfer,
	complaintCache ComplaintCache,
	cfg Config,
	log *logger.Logger,
) *Service {
	return newService(complaints, users, transfers, complaintCache, cfg, log)
}

func newService(
	complaints ComplaintStore,
	users UserLedger,
	transfers PointTransfer,
	complaintCache ComplaintCache,
	cfg Config,
	log *logger.Logger,
) *Service {
	if cfg.SemesterBudget == 0 {
		cfg.SemesterBudget = 1000
	}
	if cfg.MinReplyLength == 0 {
		cfg.MinReplyLength = 10
	}
	return &Service{
		complaints: complaints,
		users:      users,
		transfers:  transfers,
		cache:      complaintCache,
		cfg:        cfg,
		log:        log,
	}
}

// SubmitInput describes a new complaint submission. The author fields
// stay anonymous unless the submitter opted into revealing identity.
type SubmitInput struct {
	Title        string
	Description  string
	Category     string
	Hashtags     []string
	AuthorName   string
	AuthorYear   string
	AuthorBranch string
}

// SubmitComplaint creates a complaint in status Unsolved with zero
// points and a single seed history entry.
func (s *Service) SubmitComplaint(ctx context.Context, in SubmitInput) (*models.Complaint, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", models.ErrEmptyContent)
	}

	authorName := strings.TrimSpace(in.AuthorName)
	if authorName == "" {
		authorName = "Anonymous"
	}

	now := time.Now().UTC()
	complaint := &models.Complaint{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Category:     in.Category,
		Hashtags:     dedupeHashtags(in.Hashtags),
		AuthorName:   authorName,
		AuthorYear:   in.AuthorYear,
		AuthorBranch: in.AuthorBranch,
		Status:       models.StatusUnsolved,
		StatusHistory: []models.StatusChange{
			{Status: models.StatusUnsolved, Timestamp: now},
		},
	}

	// Random PRB-### IDs can collide; retry with a fresh draw.
	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		complaint.ID = fmt.Sprintf("PRB-%03d", rand.IntN(900)+100)
		err = s.complaints.Create(complaint)
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrDuplicateID) {
			return nil, err
		}
	}
	if err != nil {
		return nil, fmt.Errorf("complaint ID space exhausted: %w", err)
	}

	s.invalidate(ctx, complaint.ID)
	metrics.RecordSubmission(complaint.Category)

	s.log.Info().
		Str("complaint_id", complaint.ID).
		Str("category", complaint.Category).
		Msg("Complaint submitted")

	return complaint, nil
}

// InvestResult is the outcome of a successful point investment.
type InvestResult struct {
	Complaint      *models.Complaint `json:"complaint"`
	UpdatedBalance int               `json:"updated_balance"`
}

// InvestPoints transfers amount priority points from the student's
// balance to the complaint's total. The transfer is all-or-nothing;
// on any failure both records are unchanged. idempotencyKey
// deduplicates retried attempts and may be empty for one-shot calls.
func (s *Service) InvestPoints(ctx context.Context, userID, complaintID string, amount int, idempotencyKey string) (*InvestResult, error) {
	if amount <= 0 {
		metrics.RecordInvestment(metrics.ResultRejected, 0)
		return nil, fmt.Errorf("amount %d: %w", amount, models.ErrInvalidAmount)
	}

	user, err := s.users.GetByUID(userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleStudent {
		metrics.RecordInvestment(metrics.ResultRejected, 0)
		return nil, fmt.Errorf("only students invest points: %w", models.ErrUnauthorized)
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	// The balance check runs again inside the transfer transaction
	// under a row lock; this is what makes racing invests safe.
	result, err := s.transfers.Transfer(userID, complaintID, amount, idempotencyKey)
	if err != nil {
		if models.IsValidation(err) || errors.Is(err, models.ErrDuplicateInvestment) {
			metrics.RecordInvestment(metrics.ResultRejected, 0)
		}
		return nil, err
	}

	s.invalidate(ctx, result.Complaint.ID)
	metrics.RecordInvestment(metrics.ResultAccepted, amount)

	s.log.Info().
		Str("complaint_id", result.Complaint.ID).
		Str("user_id", userID).
		Int("amount", amount).
		Int("remaining_balance", result.RemainingBalance).
		Msg("Points invested")

	return &InvestResult{
		Complaint:      result.Complaint,
		UpdatedBalance: result.RemainingBalance,
	}, nil
}

// ChangeStatus performs a lifecycle action on a complaint. On success
// exactly one history entry is appended; on failure the complaint is
// unchanged. Transitions on the same complaint serialize on its row.
func (s *Service) ChangeStatus(ctx context.Context, complaintID string, action models.Action, callerRole models.Role) (*models.Complaint, error) {
	updated, err := s.complaints.UpdateWithLock(complaintID, func(c *models.Complaint) error {
		next, err := resolveTransition(c.Status, action, callerRole)
		if err != nil {
			return err
		}
		c.Status = next
		c.StatusHistory = append(c.StatusHistory, models.StatusChange{
			Status:    next,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		metrics.RecordTransition(string(action), metrics.ResultRejected)
		return nil, err
	}

	s.invalidate(ctx, updated.ID)
	metrics.RecordTransition(string(action), metrics.ResultApplied)

	s.log.Info().
		Str("complaint_id", updated.ID).
		Str("action", string(action)).
		Str("status", string(updated.Status)).
		Msg("Complaint status changed")

	return updated, nil
}

// ReplyAuthor describes who is posting a reply.
type ReplyAuthor struct {
	Name string
	IsOP bool
	Post string // admin title, empty for students
}

// PostReply appends a reply to the complaint's discussion. Content
// shorter than the configured minimum (after trimming) is rejected.
// Replies never alter status or point totals.
func (s *Service) PostReply(ctx context.Context, complaintID string, author ReplyAuthor, content string) (*models.Reply, error) {
	if len(strings.TrimSpace(content)) < s.cfg.MinReplyLength {
		return nil, fmt.Errorf("reply must be at least %d characters: %w", s.cfg.MinReplyLength, models.ErrEmptyContent)
	}

	updated, err := s.complaints.UpdateWithLock(complaintID, func(c *models.Complaint) error {
		c.Replies = append(c.Replies, models.Reply{
			AuthorName: author.Name,
			AuthorIsOP: author.IsOP,
			AuthorPost: author.Post,
			Content:    content,
			CreatedAt:  time.Now().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, updated.ID)
	metrics.RecordReply()

	reply := updated.Replies[len(updated.Replies)-1]
	s.log.Info().
		Str("complaint_id", updated.ID).
		Str("reply_id", reply.ID).
		Msg("Reply posted")

	return &reply, nil
}

// UpvoteReply increments a reply's upvote counter.
func (s *Service) UpvoteReply(ctx context.Context, complaintID, replyID string) (*models.Reply, error) {
	reply, err := s.complaints.UpvoteReply(strings.ToUpper(complaintID), replyID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, complaintID)
	return reply, nil
}

// GetComplaint retrieves a complaint by ID. Reads never mutate state.
func (s *Service) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	key := strings.ToUpper(strings.TrimSpace(id))

	if s.cache != nil {
		if cached, err := s.cache.GetComplaint(ctx, key); err == nil {
			metrics.RecordCacheLookup("hit")
			return cached, nil
		}
		metrics.RecordCacheLookup("miss")
	}

	complaint, err := s.complaints.GetByID(key)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetComplaint(ctx, complaint); err != nil {
			s.log.Warn().Err(err).Str("complaint_id", complaint.ID).Msg("Failed to cache complaint")
		}
	}
	return complaint, nil
}

// ListComplaints retrieves all complaints, newest first by default.
// sortBy may be "date" or "points".
func (s *Service) ListComplaints(ctx context.Context, sortBy string) ([]models.Complaint, error) {
	if sortBy != repository.SortByPoints {
		sortBy = repository.SortByDate
	}

	if s.cache != nil {
		if cached, err := s.cache.GetList(ctx, sortBy); err == nil {
			metrics.RecordCacheLookup("hit")
			return cached, nil
		}
		metrics.RecordCacheLookup("miss")
	}

	complaints, err := s.complaints.List(sortBy)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetList(ctx, sortBy, complaints); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache complaint list")
		}
	}
	return complaints, nil
}

// Authenticate resolves a login identifier and secret to an account.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) Authenticate(ctx context.Context, identifier, secret string) (*models.UserAccount, error) {
	return s.users.FindByCredential(identifier, secret)
}

// GetAccount retrieves an account by UID, balance included.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) GetAccount(ctx context.Context, uid string) (*models.UserAccount, error) {
	return s.users.GetByUID(uid)
}

// RegisterInput describes a new account registration.
type RegisterInput struct {
	Identifier string // email for admins, student ID for students
	Secret     string
	Role       models.Role
	FullName   string
	Post       string
}

// Register provisions an account. Students start with the configured
// semester budget; admins carry no balance.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.UserAccount, error) {
	identifier := strings.TrimSpace(in.Identifier)
	if identifier == "" || in.Secret == "" {
		return nil, models.ErrAuthenticationFailed
	}
	if in.Role != models.RoleStudent && in.Role != models.RoleAdmin {
		return nil, fmt.Errorf("unknown role %q: %w", in.Role, models.ErrUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}

	user := &models.UserAccount{
		PasswordHash: string(hash),
		Role:         in.Role,
		FullName:     in.FullName,
		Post:         in.Post,
	}
	if in.Role == models.RoleAdmin {
		user.Email = identifier
	} else {
		user.StudentID = identifier
		budget := s.cfg.SemesterBudget
		user.PriorityPoints = &budget
	}

	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("uid", user.UID).
		Str("role", string(user.Role)).
		Msg("Account registered")

	return user, nil
}

// ResetSemesterBudgets restores every student balance to budget. Run
// at semester boundaries by an operator.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) ResetSemesterBudgets(ctx context.Context, budget int) error {
	affected, err := s.users.ResetSemesterBudgets(budget)
	if err != nil {
		return err
	}

	s.log.Info().
		Int("budget", budget).
		Int64("students", affected).
		Msg("Semester budgets reset")

	return nil
}

// RefreshGauges recomputes the status and balance gauges from storage.
// The server process calls this on an interval; it only reads.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) RefreshGauges(ctx context.Context) error {
	complaints, err := s.complaints.List(repository.SortByDate)
	if err != nil {
		return err
	}

	counts := make(map[models.Status]int)
	for i := range complaints {
		counts[complaints[i].Status]++
	}
	for _, status := range []models.Status{
		models.StatusUnsolved,
		models.StatusUnderInvestigation,
		models.StatusPendingVerification,
		models.StatusSolved,
		models.StatusRejected,
	} {
		metrics.ComplaintsByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}

	students, err := s.users.ListStudents()
	if err != nil {
		return err
	}
	var remaining int
	for i := range students {
		remaining += students[i].Balance()
	}
	metrics.StudentBalanceRemaining.Set(float64(remaining))

	return nil
}

func (s *Service) invalidate(ctx context.Context, complaintIDs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, complaintIDs...); err != nil {
		s.log.Warn().Err(err).Msg("Cache invalidation failed")
	}
}

// dedupeHashtags drops repeated tags while preserving first-seen order.
func dedupeHashtags(tags []string) models.StringList {
	seen := make(map[string]bool, len(tags))
	var out models.StringList
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
