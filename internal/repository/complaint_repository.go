package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campusvoice/campus-voice/internal/models"
)

// Complaint list sort orders.
const (
	SortByDate   = "date"
	SortByPoints = "points"
)

// ComplaintRepository handles complaint-related database operations.
// Complaints are never deleted through this interface.
type ComplaintRepository struct {
	db *DB
}

// NewComplaintRepository creates a new complaint repository.
func NewComplaintRepository(db *DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Create persists a new complaint together with any seed history entries.
func (r *ComplaintRepository) Create(complaint *models.Complaint) error {
	if err := r.db.Create(complaint).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("complaint %s: %w", complaint.ID, models.ErrDuplicateID)
		}
		return fmt.Errorf("failed to create complaint: %w", err)
	}
	return nil
}

// GetByID retrieves a complaint with its ordered history and replies.
// Lookup is case-insensitive; students paste IDs like "prb-042".
func (r *ComplaintRepository) GetByID(id string) (*models.Complaint, error) {
	return getComplaint(r.db.DB, id, false)
}

// List retrieves all complaints, newest first by default or by
// priority points descending when sortBy is SortByPoints.
func (r *ComplaintRepository) List(sortBy string) ([]models.Complaint, error) {
	query := preloadComplaint(r.db.DB)

	switch sortBy {
	case SortByPoints:
		query = query.Order("priority_points DESC, created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	var complaints []models.Complaint
	if err := query.Find(&complaints).Error; err != nil {
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}
	return complaints, nil
}

// UpdateWithLock applies mutate to the complaint inside a transaction
// holding a row lock, so concurrent updates to the same complaint
// serialize. Scalar changes are saved; history entries and replies
// appended by mutate are persisted, existing ones are left untouched.
// If mutate returns an error the transaction rolls back unchanged.
func (r *ComplaintRepository) UpdateWithLock(id string, mutate func(*models.Complaint) error) (*models.Complaint, error) {
	var result *models.Complaint
	err := r.db.Transaction(func(tx *gorm.DB) error {
		complaint, err := getComplaint(tx, id, true)
		if err != nil {
			return err
		}

		historyBefore := len(complaint.StatusHistory)
		repliesBefore := len(complaint.Replies)

		if err := mutate(complaint); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(complaint).Error; err != nil {
			return fmt.Errorf("failed to update complaint %s: %w", id, err)
		}
		for i := historyBefore; i < len(complaint.StatusHistory); i++ {
			complaint.StatusHistory[i].ComplaintID = complaint.ID
			if err := tx.Create(&complaint.StatusHistory[i]).Error; err != nil {
				return fmt.Errorf("failed to append status change: %w", err)
			}
		}
		for i := repliesBefore; i < len(complaint.Replies); i++ {
			complaint.Replies[i].ComplaintID = complaint.ID
			if err := tx.Create(&complaint.Replies[i]).Error; err != nil {
				return fmt.Errorf("failed to append reply: %w", err)
			}
		}

		result = complaint
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpvoteReply atomically increments the upvote counter of a reply.
func (r *ComplaintRepository) UpvoteReply(complaintID, replyID string) (*models.Reply, error) {
	var reply models.Reply
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Reply{}).
			Where("id = ? AND complaint_id = ?", replyID, complaintID).
			UpdateColumn("upvotes", gorm.Expr("upvotes + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to upvote reply %s: %w", replyID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("reply %s on complaint %s: %w", replyID, complaintID, models.ErrNotFound)
		}
		return tx.Where("id = ?", replyID).First(&reply).Error
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// preloadComplaint attaches the ordered child collections.
func preloadComplaint(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, id ASC")
		}).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}

func getComplaint(tx *gorm.DB, id string, lock bool) (*models.Complaint, error) {
	query := preloadComplaint(tx)
	if lock {
		query = lockForUpdate(query)
	}

	var complaint models.Complaint
	err := query.Where("upper(id) = upper(?)", id).First(&complaint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("complaint %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get complaint %s: %w", id, err)
	}
	return &complaint, nil
}
