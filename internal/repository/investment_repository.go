package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusvoice/campus-voice/internal/models"
)

// InvestmentRepository owns the point-transfer ledger. The transfer is
// the single place where a student balance and a complaint total move
// together, so it lives next to the ledger rows that record it.
type InvestmentRepository struct {
	db *DB
}

// NewInvestmentRepository creates a new investment repository.
func NewInvestmentRepository(db *DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// TransferResult is the outcome of a successful point transfer.
type TransferResult struct {
	Complaint        *models.Complaint
	RemainingBalance int
	Investment       *models.Investment
}

// Transfer moves amount points from a student's balance to a
// complaint's total in one transaction: both writes and the ledger row
// commit together or not at all. Rows are locked users-first then
// complaints, in that order everywhere, so concurrent transfers
// serialize without deadlocking and the balance check always sees the
// latest committed value.
func (r *InvestmentRepository) Transfer(userID, complaintID string, amount int, idempotencyKey string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount %d: %w", amount, models.ErrInvalidAmount)
	}

	var result TransferResult
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var user models.UserAccount
		if err := lockForUpdate(tx).Where("uid = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
			}
			return fmt.Errorf("failed to get user %s: %w", userID, err)
		}
		if user.Role != models.RoleStudent || user.PriorityPoints == nil {
			return fmt.Errorf("user %s is not a student: %w", userID, models.ErrUnauthorized)
		}
		if amount > *user.PriorityPoints {
			return fmt.Errorf("amount %d exceeds balance %d: %w", amount, *user.PriorityPoints, models.ErrInsufficientBalance)
		}

		complaint, err := getComplaint(tx, complaintID, true)
		if err != nil {
			return err
		}

		investment := &models.Investment{
			IdempotencyKey: idempotencyKey,
			UserID:         user.UID,
			ComplaintID:    complaint.ID,
			Amount:         amount,
		}
		if err := tx.Create(investment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("attempt %s: %w", idempotencyKey, models.ErrDuplicateInvestment)
			}
			return fmt.Errorf("failed to record investment: %w", err)
		}

		newBalance := *user.PriorityPoints - amount
		user.PriorityPoints = &newBalance
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to decrement balance: %w", err)
		}

		complaint.PriorityPoints += amount
		if err := tx.Omit(clause.Associations).Save(complaint).Error; err != nil {
			return fmt.Errorf("failed to increment complaint points: %w", err)
		}

		result = TransferResult{
			Complaint:        complaint,
			RemainingBalance: newBalance,
			Investment:       investment,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetByIdempotencyKey retrieves a ledger entry by its attempt key.
func (r *InvestmentRepository) GetByIdempotencyKey(key string) (*models.Investment, error) {
	var investment models.Investment
	if err := r.db.Where("idempotency_key = ?", key).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("investment %s: %w", key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get investment %s: %w", key, err)
	}
	return &investment, nil
}

// SumForComplaint totals the ledger entries for one complaint. An
// audit can compare this against the complaint's point column to
// detect a half-applied transfer after a crash.
func (r *InvestmentRepository) SumForComplaint(complaintID string) (int, error) {
	var total int64
	err := r.db.Model(&models.Investment{}).
		Where("complaint_id = ?", complaintID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum investments for %s: %w", complaintID, err)
	}
	return int(total), nil
}

// ListByUser retrieves a student's ledger entries, newest first.
func (r *InvestmentRepository) ListByUser(userID string) ([]models.Investment, error) {
	var investments []models.Investment
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&investments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list investments for %s: %w", userID, err)
	}
	return investments, nil
}
