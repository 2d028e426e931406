package handlers

import (
	"net/http"
	"slices"

	"github.com/pohaoc29/GroceryShopperAI/internal/store"
)

// PlanRequest selects which plan to build for a room.
type PlanRequest struct {
	Kind     string `json:"kind"` // goal, group, procurement or invites
	Goal     string `json:"goal,omitempty"`
	Provider string `json:"provider,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Plan builds a structured plan from a room's recent chat history.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	room := h.loadRoom(w, r)
	if room == nil {
		return
	}
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	if !h.requireMember(r.Context(), w, room.ID, user.ID) {
		return
	}

	var req PlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Kind == "" {
		req.Kind = "group"
	}
	if req.Limit <= 0 || req.Limit > store.MaxRecent {
		req.Limit = store.MaxRecent
	}

	p := h.planner
	if req.Provider != "" {
		if !slices.Contains(h.models.Providers(), req.Provider) {
			h.Error(w, http.StatusBadRequest, "unknown provider")
			return
		}
		p = p.WithProvider(req.Provider)
	}

	ctx := r.Context()
	history, err := h.db.ReadRecent(ctx, room.ID, req.Limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	var members []string
	if req.Kind == "group" || req.Kind == "invites" {
		list, err := h.db.ListRoomMembers(ctx, room.ID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to list members")
			return
		}
		for _, m := range list {
			members = append(members, m.Username)
		}
	}

	var result any
	switch req.Kind {
	case "goal":
		var goal string
		goal, err = p.Goal(ctx, history)
		result = map[string]string{"goal": goal}
	case "group":
		result, err = p.GroupPlan(ctx, history, req.Goal, members)
	case "procurement":
		result, err = p.ProcurementPlan(ctx, history)
	case "invites":
		result, err = p.SuggestInvites(ctx, history, members, req.Goal)
	default:
		h.Error(w, http.StatusBadRequest, "kind must be one of goal, group, procurement, invites")
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Int64("room_id", room.ID).Str("kind", req.Kind).Msg("plan failed")
		h.Error(w, http.StatusBadGateway, err.Error())
		return
	}

	h.JSON(w, http.StatusOK, map[string]any{"ok": true, "kind": req.Kind, "plan": result})
}
