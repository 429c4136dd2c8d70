package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/saransh1220/foodhub/internal/gateway/middleware"
	"github.com/saransh1220/foodhub/internal/modules/notification/application"
	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
	"github.com/saransh1220/foodhub/internal/shared/utils"
	"go.uber.org/zap"
)

const (
	defaultPageSize   = 20
	defaultRecentDays = 7
)

type NotificationHandler struct {
	lifecycle *application.LifecycleManager
	query     *application.QueryIndex
	broadcast *application.BroadcastEngine
	sweeper   *application.MaintenanceSweeper
	users     domain.UserDirectory
	logger    *zap.Logger
}

type Deps struct {
	Lifecycle *application.LifecycleManager
	Query     *application.QueryIndex
	Broadcast *application.BroadcastEngine
	Sweeper   *application.MaintenanceSweeper
	// Users backs broadcasts to all active users. Optional.
	Users  domain.UserDirectory
	Logger *zap.Logger
}

func NewNotificationHandler(d Deps) *NotificationHandler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		lifecycle: d.Lifecycle,
		query:     d.Query,
		broadcast: d.Broadcast,
		sweeper:   d.Sweeper,
		users:     d.Users,
		logger:    logger,
	}
}

// Create is admin only. Other services create notifications through the
// lifecycle manager directly.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in application.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	n, err := h.lifecycle.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, n)
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, ok := h.owned(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.MarkRead)
}

func (h *NotificationHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.MarkUnread)
}

func (h *NotificationHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.SoftDelete)
}

func (h *NotificationHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.lifecycle.Restore)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	updated, err := h.lifecycle.MarkAllRead(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// Purge removes a soft-deleted notification for good. ?force=true skips
// the cooldown.
func (h *NotificationHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var err error
	if r.URL.Query().Get("force") == "true" {
		err = h.lifecycle.ForcePurge(r.Context(), id)
	} else {
		err = h.lifecycle.Purge(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, ok := pageParams(w, r)
	if !ok {
		return
	}

	items, err := h.query.ByRecipient(r.Context(), userID, page)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writePage(w, items, page)
}

func (h *NotificationHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.query.UnreadByRecipient(r.Context(), userID)
	h.writeList(w, items, err)
}

func (h *NotificationHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	category, err := domain.ParseCategory(r.PathValue("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	items, err := h.query.ByCategory(r.Context(), userID, category)
	h.writeList(w, items, err)
}

func (h *NotificationHandler) ByPriority(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	priority, err := domain.ParsePriority(r.PathValue("priority"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	items, err := h.query.ByPriority(r.Context(), userID, priority)
	h.writeList(w, items, err)
}

func (h *NotificationHandler) HighPriority(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.query.HighPriority(r.Context(), userID)
	h.writeList(w, items, err)
}

func (h *NotificationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	days, ok := intParam(w, r, "days", defaultRecentDays)
	if !ok {
		return
	}
	items, err := h.query.Recent(r.Context(), userID, days)
	h.writeList(w, items, err)
}

func (h *NotificationHandler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	n, err := h.query.Latest(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, n)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	count, err := h.query.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

type countsResponse struct {
	Unread                int                     `json:"unread"`
	HighPriorityUnread    int                     `json:"high_priority_unread"`
	HasUnreadHighPriority bool                    `json:"has_unread_high_priority"`
	ByCategory            map[domain.Category]int `json:"by_category"`
}

func (h *NotificationHandler) Counts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var resp countsResponse
	var err error
	if resp.Unread, err = h.query.UnreadCount(ctx, userID); err != nil {
		h.writeError(w, err)
		return
	}
	if resp.HighPriorityUnread, err = h.query.HighPriorityUnreadCount(ctx, userID); err != nil {
		h.writeError(w, err)
		return
	}
	if resp.ByCategory, err = h.query.CountByCategory(ctx, userID); err != nil {
		h.writeError(w, err)
		return
	}
	resp.HasUnreadHighPriority = resp.HighPriorityUnread > 0
	utils.WriteJSON(w, http.StatusOK, resp)
}

// ByCorrelation lists notifications about an order, restaurant or
// delivery. Non-admin callers only see their own.
func (h *NotificationHandler) ByCorrelation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	items, err := h.query.ByCorrelation(r.Context(), domain.CorrelationKind(r.PathValue("kind")), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !isAdmin(r) {
		own := items[:0]
		for _, n := range items {
			if n.RecipientID == userID {
				own = append(own, n)
			}
		}
		items = own
	}
	h.writeList(w, items, nil)
}

// Deleted is the admin restore view: ?user_id is required.
func (h *NotificationHandler) Deleted(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid user_id", err)
		return
	}
	page, ok := pageParams(w, r)
	if !ok {
		return
	}

	var items []domain.Notification
	if r.URL.Query().Get("include_live") == "true" {
		items, err = h.query.WithDeleted(r.Context(), userID, page)
	} else {
		items, err = h.query.Deleted(r.Context(), userID, page)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writePage(w, items, page)
}

type broadcastRequest struct {
	domain.Template
	// UserIDs limits the broadcast. Empty means every active user.
	UserIDs []uuid.UUID `json:"user_ids,omitempty"`
}

func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	category, err := domain.ParseCategory(string(req.Category))
	if err != nil {
		h.writeError(w, err)
		return
	}
	priority, err := domain.ParsePriority(string(req.Priority))
	if err != nil {
		h.writeError(w, err)
		return
	}
	req.Category, req.Priority = category, priority

	var source application.RecipientSource
	switch {
	case len(req.UserIDs) > 0:
		source = application.StaticRecipients(req.UserIDs)
	case h.users != nil:
		source = application.ActiveUsers(h.users)
	default:
		utils.WriteError(w, http.StatusBadRequest, "user_ids is required", nil)
		return
	}

	res, err := h.broadcast.Broadcast(r.Context(), req.Template, source)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *NotificationHandler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.RunDaily(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			h.writeError(w, err)
			return
		}
		h.logger.Error("maintenance run failed", zap.Error(err))
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

func (h *NotificationHandler) SoftDeleteOlderThan(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", application.DefaultSoftDeleteAfterDays)
	if !ok {
		return
	}
	affected, err := h.sweeper.SoftDeleteOlderThan(r.Context(), days)
	h.writeAffected(w, affected, err)
}

func (h *NotificationHandler) PurgeOlderThan(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", application.DefaultPurgeAfterDays)
	if !ok {
		return
	}
	affected, err := h.sweeper.PurgeOlderThan(r.Context(), days)
	h.writeAffected(w, affected, err)
}

func (h *NotificationHandler) writeAffected(w http.ResponseWriter, affected int, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int{"affected": affected})
}

// owned loads the notification named by the {id} path value. Callers that
// are not admins get 404 for notifications addressed to someone else.
func (h *NotificationHandler) owned(w http.ResponseWriter, r *http.Request) (*domain.Notification, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}

	n, err := h.lifecycle.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	if n.RecipientID != userID && !isAdmin(r) {
		h.writeError(w, domain.ErrNotificationNotFound)
		return nil, false
	}
	return n, true
}

func (h *NotificationHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID) (*domain.Notification, error)) {
	n, ok := h.owned(w, r)
	if !ok {
		return
	}
	updated, err := apply(r.Context(), n.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *NotificationHandler) writeList(w http.ResponseWriter, items []domain.Notification, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"data": items})
}

func writePage(w http.ResponseWriter, items []domain.Notification, page application.Page) {
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"page": page.Number,
		"size": page.Size,
	})
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, err error) {
	var perr *domain.PersistenceError
	var merr *domain.MaintenanceError
	switch {
	case errors.Is(err, domain.ErrValidation):
		utils.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, domain.ErrNotificationNotFound):
		utils.WriteError(w, http.StatusNotFound, "notification not found", nil)
	case errors.Is(err, domain.ErrRecipientNotFound):
		utils.WriteError(w, http.StatusNotFound, "recipient not found", nil)
	case errors.Is(err, domain.ErrLockHeld):
		utils.WriteError(w, http.StatusConflict, err.Error(), nil)
	case errors.As(err, &perr), errors.As(err, &merr):
		h.logger.Error("notification store unavailable", zap.Error(err))
		utils.WriteError(w, http.StatusServiceUnavailable, "notification store unavailable", nil)
	default:
		h.logger.Error("notification request failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(middleware.ContextKeyUserId).(uuid.UUID)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return userID, true
}

func isAdmin(r *http.Request) bool {
	role, _ := r.Context().Value(middleware.ContextKeyRole).(string)
	return role == middleware.RoleAdmin
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(w http.ResponseWriter, r *http.Request) (application.Page, bool) {
	number, ok := intParam(w, r, "page", 0)
	if !ok {
		return application.Page{}, false
	}
	size, ok := intParam(w, r, "size", defaultPageSize)
	if !ok {
		return application.Page{}, false
	}
	return application.Page{Number: number, Size: size}, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return v, true
}
