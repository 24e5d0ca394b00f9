// internal/app/features/groups/views.go
package groups

import (
	"context"
	"time"

	"github.com/dalemusser/noteku/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// groupView is a group with its member ids expanded to summaries. Notes
// holds note ids in list responses and full notes in detail responses.
type groupView struct {
	ID        primitive.ObjectID   `json:"id"`
	Name      string               `json:"name"`
	Members   []models.UserSummary `json:"members"`
	Notes     any                  `json:"notes"`
	CreatedBy primitive.ObjectID   `json:"createdBy"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func newGroupView(g models.Group, members []models.UserSummary, notes any) groupView {
	if members == nil {
		members = []models.UserSummary{}
	}
	return groupView{
		ID:        g.ID,
		Name:      g.Name,
		Members:   members,
		Notes:     notes,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

// expandMembers loads every member of every group in one query.
func (h *Handler) expandMembers(ctx context.Context, groups []models.Group) ([]groupView, error) {
	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for _, g := range groups {
		for _, id := range g.MemberIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	summaries, err := h.Users.ListSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.UserSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}

	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		members := make([]models.UserSummary, 0, len(g.MemberIDs))
		for _, id := range g.MemberIDs {
			if s, ok := byID[id]; ok {
				members = append(members, s)
			}
		}
		noteIDs := g.NoteIDs
		if noteIDs == nil {
			noteIDs = []primitive.ObjectID{}
		}
		out = append(out, newGroupView(g, members, noteIDs))
	}
	return out, nil
}
