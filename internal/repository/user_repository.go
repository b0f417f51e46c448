package repository

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campusvoice/campus-voice/internal/models"
)

// UserRepository handles user-account database operations, including
// the priority-point balances that back the investment ledger.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create registers a new account. The identifier for the account's
// role (email for admins, student ID for students) must be unused.
func (r *UserRepository) Create(user *models.UserAccount) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		query := tx.Model(&models.UserAccount{})
		if user.Role == models.RoleAdmin {
			query = query.Where("email = ?", user.Email)
		} else {
			query = query.Where("student_id = ?", user.StudentID)
		}
		if err := query.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check identifier: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("identifier %s: %w", user.Identifier(), models.ErrDuplicateIdentifier)
		}
		return tx.Create(user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("identifier %s: %w", user.Identifier(), models.ErrDuplicateIdentifier)
		}
		return err
	}
	return nil
}

// GetByUID retrieves an account by its UID.
func (r *UserRepository) GetByUID(uid string) (*models.UserAccount, error) {
	var user models.UserAccount
	if err := r.db.Where("uid = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", uid, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", uid, err)
	}
	return &user, nil
}

// FindByCredential looks an account up by its login identifier (email
// for admins, student ID for students) and verifies the secret. The
// same error comes back for an unknown identifier and a wrong secret.
func (r *UserRepository) FindByCredential(identifier, secret string) (*models.UserAccount, error) {
	var user models.UserAccount
	err := r.db.Where("email = ? OR student_id = ?", identifier, identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)) != nil {
		return nil, models.ErrAuthenticationFailed
	}
	return &user, nil
}

// AdjustBalance sets a student's balance to newBalance under a row
// lock. The balance floor is enforced here as the last line of
// defense; callers normally reject overspends before reaching it.
func (r *UserRepository) AdjustBalance(uid string, newBalance int) (*models.UserAccount, error) {
	if newBalance < 0 {
		return nil, fmt.Errorf("user %s: %w", uid, models.ErrNegativeBalance)
	}

	var user models.UserAccount
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Where("uid = ?", uid).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %s: %w", uid, models.ErrNotFound)
			}
			return fmt.Errorf("failed to get user %s: %w", uid, err)
		}
		if user.PriorityPoints == nil {
			return fmt.Errorf("user %s holds no point balance: %w", uid, models.ErrUnauthorized)
		}
		user.PriorityPoints = &newBalance
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ResetSemesterBudgets sets every student balance back to budget.
// Admin accounts are untouched.
func (r *UserRepository) ResetSemesterBudgets(budget int) (int64, error) {
	if budget < 0 {
		return 0, fmt.Errorf("budget %d: %w", budget, models.ErrNegativeBalance)
	}

	res := r.db.Model(&models.UserAccount{}).
		Where("role = ?", models.RoleStudent).
		Update("priority_points", budget)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset semester budgets: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListStudents retrieves all student accounts.
func (r *UserRepository) ListStudents() ([]models.UserAccount, error) {
	var users []models.UserAccount
	if err := r.db.Where("role = ?", models.RoleStudent).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return users, nil
}
