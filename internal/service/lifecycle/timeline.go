package lifecycle

import (
	"sort"
	"time"

	"github.com/campusvoice/campus-voice/internal/models"
)

// Timeline item kinds.
const (
	TimelineStatusChange = "status"
	TimelineReply        = "reply"
)

// TimelineItem is one entry in a complaint's merged discussion thread:
// either a reply or a status change.
type TimelineItem struct {
	Type         string               `json:"type"`
	Timestamp    time.Time            `json:"timestamp"`
	StatusChange *models.StatusChange `json:"status_change,omitempty"`
	Reply        *models.Reply        `json:"reply,omitempty"`
}

// Timeline merges a complaint's status history and replies into one
// chronological thread. The sort is stable, so entries with equal
// timestamps keep their insertion order.
func Timeline(c *models.Complaint) []TimelineItem {
	items := make([]TimelineItem, 0, len(c.StatusHistory)+len(c.Replies))

	for i := range c.StatusHistory {
		sc := &c.StatusHistory[i]
		items = append(items, TimelineItem{
			Type:         TimelineStatusChange,
			Timestamp:    sc.Timestamp,
			StatusChange: sc,
		})
	}
	for i := range c.Replies {
		r := &c.Replies[i]
		items = append(items, TimelineItem{
			Type:      TimelineReply,
			Timestamp: r.CreatedAt,
			Reply:     r,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	return items
}
