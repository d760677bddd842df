package service

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/splitledger/splitledger/internal/calculator"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

// GroupService handles group creation and membership.
type GroupService struct {
	store  storage.Store
	logger *slog.Logger
}

func NewGroupService(store storage.Store, logger *slog.Logger) *GroupService {
	return &GroupService{store: store, logger: logger}
}

type groupResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

func toGroupResponse(group *models.Group) groupResponse {
	return groupResponse{
		ID:        group.ID,
		Name:      group.Name,
		Members:   group.Members,
		CreatedAt: group.CreatedAt,
	}
}

// CreateGroup creates a group. The caller is always a member, whether
// or not they list themselves.
func (s *GroupService) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, fmt.Errorf("%w: group name required", calculator.ErrInvalidSplit))
		return
	}

	userID := middleware.GetUserID(r.Context())
	members := req.Members
	found := false
	for _, m := range members {
		if m == userID {
			found = true
			break
		}
	}
	if !found {
		members = append([]string{userID}, members...)
	}

	group := &models.Group{Name: req.Name, Members: members}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		s.logger.Error("failed to create group", "error", err)
		writeError(w, err)
		return
	}

	s.logger.Info("group created", "group_id", group.ID, "members", len(group.Members))
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

// GetGroup returns a group the caller belongs to.
func (s *GroupService) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := requireMember(r, s.store, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// AddMembers adds users to a group the caller belongs to. Existing
// members are skipped, not duplicated.
func (s *GroupService) AddMembers(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if _, err := requireMember(r, s.store, groupID); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Members []string `json:"members"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Members) == 0 {
		writeError(w, fmt.Errorf("%w: members required", calculator.ErrInvalidSplit))
		return
	}

	if err := s.store.AddGroupMembers(r.Context(), groupID, req.Members); err != nil {
		s.logger.Error("failed to add members", "group_id", groupID, "error", err)
		writeError(w, err)
		return
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("members added", "group_id", groupID, "added", req.Members)
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// ListGroups returns the groups the caller belongs to.
func (s *GroupService) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroupsForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		s.logger.Error("failed to list groups", "error", err)
		writeError(w, err)
		return
	}

	resp := struct {
		Groups []groupResponse `json:"groups"`
	}{Groups: make([]groupResponse, 0, len(groups))}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}
