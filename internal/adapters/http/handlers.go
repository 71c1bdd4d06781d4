package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/seido-app/courier/internal/application"
	"github.com/seido-app/courier/internal/contracts"
	"github.com/seido-app/courier/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	input := application.ListNotificationsInput{
		UserID:   r.URL.Query().Get("user_id"),
		Type:     r.URL.Query().Get("type"),
		Status:   r.URL.Query().Get("status"),
		Page:     parseIntDefault(r.URL.Query().Get("page"), 1),
		PageSize: parseIntDefault(r.URL.Query().Get("page_size"), 20),
	}

	items, total, err := h.service.ListNotifications(r.Context(), actor, input)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "list_notifications", status, code, msg, err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	res := contracts.ListNotificationsResponse{
		Items:    make([]contracts.NotificationItem, 0, len(items)),
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasMore:  page*pageSize < total,
	}
	for _, item := range items {
		res.Items = append(res.Items, toNotificationItem(item))
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	count, userID, err := h.service.UnreadCount(r.Context(), actor, r.URL.Query().Get("user_id"))
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.UnreadCountResponse{
		UserID:      userID,
		UnreadCount: count,
	})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	row, err := h.service.MarkRead(r.Context(), actor, chi.URLParam(r, "notification_id"))
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.MarkStateResponse{
		NotificationID: row.NotificationID,
		Status:         "read",
	})
}

func (h *Handler) listMailboxes(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	items, err := h.service.ListMailboxes(r.Context(), actor)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	res := contracts.ListMailboxesResponse{Items: make([]contracts.MailboxItem, 0, len(items))}
	for _, item := range items {
		res.Items = append(res.Items, toMailboxItem(item))
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) syncAllMailboxes(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	outcomes, err := h.service.SyncAllMailboxes(r.Context(), actor)
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "sync_all_mailboxes", status, code, msg, err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	res := contracts.SyncResponse{Outcomes: make([]contracts.SyncOutcomeItem, 0, len(outcomes))}
	for _, outcome := range outcomes {
		res.Outcomes = append(res.Outcomes, toSyncOutcomeItem(outcome))
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) syncMailbox(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	outcome, err := h.service.SyncMailbox(r.Context(), actor, chi.URLParam(r, "connection_id"))
	if err != nil {
		status, code, msg := mapDomainError(err)
		logHTTPOperationError(r.Context(), "sync_mailbox", status, code, msg, err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	writeSuccess(w, http.StatusOK, toSyncOutcomeItem(outcome))
}

func (h *Handler) resetMailboxCursor(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	var req contracts.ResetCursorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), actor.RequestID)
		return
	}
	if err := h.service.ResetMailboxCursor(r.Context(), actor, chi.URLParam(r, "connection_id"), req.UID); err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	writeMessage(w, http.StatusOK, "cursor reset")
}

func (h *Handler) addBlacklistEntry(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	var req contracts.AddBlacklistRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), actor.RequestID)
		return
	}
	if strings.TrimSpace(req.SenderAddress) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "sender_address is required", actor.RequestID)
		return
	}
	entry, err := h.service.AddBlacklistEntry(r.Context(), actor, req.SenderAddress, req.Reason)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	writeSuccess(w, http.StatusCreated, toBlacklistItem(entry))
}

func (h *Handler) listBlacklist(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	entries, err := h.service.ListBlacklist(r.Context(), actor)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	res := contracts.ListBlacklistResponse{Items: make([]contracts.BlacklistItem, 0, len(entries))}
	for _, entry := range entries {
		res.Items = append(res.Items, toBlacklistItem(entry))
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) listDispatchLog(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	results, err := h.service.ListDispatchLog(r.Context(), actor, limit)
	if err != nil {
		status, code, msg := mapDomainError(err)
		writeError(w, status, code, msg, actor.RequestID)
		return
	}
	res := contracts.ListDispatchLogResponse{Items: make([]contracts.DispatchLogItem, 0, len(results))}
	for _, result := range results {
		res.Items = append(res.Items, toDispatchLogItem(result))
	}
	writeSuccess(w, http.StatusOK, res)
}

func toNotificationItem(row domain.Notification) contracts.NotificationItem {
	item := contracts.NotificationItem{
		NotificationID: row.NotificationID,
		UserID:         row.UserID,
		TeamID:         row.TeamID,
		Type:           row.Type,
		Title:          row.Title,
		Body:           row.Body,
		Metadata:       row.Metadata,
		CreatedAt:      row.CreatedAt.Format(time.RFC3339),
	}
	if row.ReadAt != nil {
		item.ReadAt = row.ReadAt.Format(time.RFC3339)
	}
	return item
}

func toMailboxItem(row domain.MailConnection) contracts.MailboxItem {
	item := contracts.MailboxItem{
		ConnectionID: row.ConnectionID,
		TeamID:       row.TeamID,
		Label:        row.Label,
		Host:         row.Host,
		Folder:       row.Folder,
		LastUID:      row.LastUID,
		LastError:    row.LastError,
		IsActive:     row.IsActive,
	}
	if row.LastSyncAt != nil {
		item.LastSyncAt = row.LastSyncAt.Format(time.RFC3339)
	}
	return item
}

func toSyncOutcomeItem(outcome domain.SyncOutcome) contracts.SyncOutcomeItem {
	return contracts.SyncOutcomeItem{
		ConnectionID: outcome.ConnectionID,
		Status:       string(outcome.Status),
		Persisted:    outcome.Persisted,
		Skipped:      outcome.Skipped,
		Failed:       outcome.Failed,
		Reason:       outcome.Reason,
		CompletedAt:  outcome.CompletedAt.Format(time.RFC3339),
	}
}

func toBlacklistItem(entry domain.BlacklistEntry) contracts.BlacklistItem {
	return contracts.BlacklistItem{
		TeamID:        entry.TeamID,
		SenderAddress: entry.SenderAddress,
		Reason:        entry.Reason,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
}

func toDispatchLogItem(result domain.DispatchResult) contracts.DispatchLogItem {
	item := contracts.DispatchLogItem{
		EventID:        result.EventID,
		EventType:      result.EventType,
		OverallSuccess: result.OverallSuccess,
		Outcomes:       make([]contracts.DispatchOutcomeItem, 0, len(result.Outcomes)),
		AttemptedAt:    result.AttemptedAt.Format(time.RFC3339),
	}
	for _, outcome := range result.Outcomes {
		item.Outcomes = append(item.Outcomes, contracts.DispatchOutcomeItem{
			Channel:     string(outcome.Channel),
			RecipientID: outcome.RecipientID,
			Status:      string(outcome.Status),
			Reason:      outcome.Reason,
		})
	}
	return item
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
