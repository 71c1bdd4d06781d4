package application

import (
	"context"
	"strings"

	"github.com/seido-app/courier/internal/domain"
)

func (s *Service) ListNotifications(ctx context.Context, actor Actor, input ListNotificationsInput) ([]domain.Notification, int, error) {
	userID, err := s.resolveUser(actor, input.UserID)
	if err != nil {
		return nil, 0, err
	}
	filter := domain.NotificationFilter{
		Type:     strings.TrimSpace(input.Type),
		Status:   strings.ToLower(strings.TrimSpace(input.Status)),
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	return s.notifications.ListByUserID(ctx, userID, filter)
}

func (s *Service) UnreadCount(ctx context.Context, actor Actor, userID string) (int, string, error) {
	resolved, err := s.resolveUser(actor, userID)
	if err != nil {
		return 0, "", err
	}
	count, err := s.notifications.CountUnread(ctx, resolved)
	return count, resolved, err
}

func (s *Service) MarkRead(ctx context.Context, actor Actor, notificationID string) (domain.Notification, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Notification{}, domain.ErrUnauthorized
	}
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return domain.Notification{}, domain.ErrInvalidInput
	}
	row, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return domain.Notification{}, err
	}
	if !canActForUser(actor, row.UserID) {
		return domain.Notification{}, domain.ErrForbidden
	}
	row.MarkRead(s.nowFn())
	if err := s.notifications.Update(ctx, row); err != nil {
		return domain.Notification{}, err
	}
	return row, nil
}

// ListMailboxes exposes connection cursor and error state for the operator
// dashboard. Managers see their team's connections; admins see all.
func (s *Service) ListMailboxes(ctx context.Context, actor Actor) ([]domain.MailConnection, error) {
	teamID, err := s.resolveTeam(actor)
	if err != nil {
		return nil, err
	}
	return s.registry.ListActive(ctx, teamID)
}

func (s *Service) SyncAllMailboxes(ctx context.Context, actor Actor) ([]domain.SyncOutcome, error) {
	if !isOperator(actor) {
		return nil, domain.ErrForbidden
	}
	return s.orchestrator.SyncAll(ctx)
}

func (s *Service) SyncMailbox(ctx context.Context, actor Actor, connectionID string) (domain.SyncOutcome, error) {
	if !isOperator(actor) {
		return domain.SyncOutcome{}, domain.ErrForbidden
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return domain.SyncOutcome{}, domain.ErrInvalidInput
	}
	return s.orchestrator.SyncOne(ctx, connectionID)
}

// ResetMailboxCursor rewinds the cursor for an explicit full resync — the
// one sanctioned exception to cursor monotonicity.
func (s *Service) ResetMailboxCursor(ctx context.Context, actor Actor, connectionID string, uid uint32) error {
	if !isAdmin(actor) {
		return domain.ErrForbidden
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return domain.ErrInvalidInput
	}
	return s.registry.ResetCursor(ctx, connectionID, uid, s.nowFn())
}

func (s *Service) AddBlacklistEntry(ctx context.Context, actor Actor, senderAddress, reason string) (domain.BlacklistEntry, error) {
	teamID, err := s.resolveTeam(actor)
	if err != nil {
		return domain.BlacklistEntry{}, err
	}
	if teamID == "" {
		return domain.BlacklistEntry{}, domain.ErrInvalidInput
	}
	return s.guard.Add(ctx, teamID, senderAddress, reason)
}

func (s *Service) ListBlacklist(ctx context.Context, actor Actor) ([]domain.BlacklistEntry, error) {
	teamID, err := s.resolveTeam(actor)
	if err != nil {
		return nil, err
	}
	if teamID == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.guard.ListByTeam(ctx, teamID)
}

func (s *Service) ListDispatchLog(ctx context.Context, actor Actor, limit int) ([]domain.DispatchResult, error) {
	if !isOperator(actor) {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.dispatchLog.ListRecent(ctx, limit)
}

func canActForUser(actor Actor, userID string) bool {
	actorID := strings.TrimSpace(actor.SubjectID)
	userID = strings.TrimSpace(userID)
	if actorID == "" || userID == "" {
		return false
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	return actorID == userID || role == "admin"
}

func isOperator(actor Actor) bool {
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	return role == "admin" || role == "gestionnaire"
}

func isAdmin(actor Actor) bool {
	return strings.ToLower(strings.TrimSpace(actor.Role)) == "admin"
}

func (s *Service) resolveUser(actor Actor, requestedUserID string) (string, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return "", domain.ErrUnauthorized
	}
	requestedUserID = strings.TrimSpace(requestedUserID)
	if requestedUserID == "" {
		requestedUserID = strings.TrimSpace(actor.SubjectID)
	}
	if !canActForUser(actor, requestedUserID) {
		return "", domain.ErrForbidden
	}
	return requestedUserID, nil
}

// resolveTeam scopes team-bound operations. Admins may pass an empty team to
// address every team.
func (s *Service) resolveTeam(actor Actor) (string, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return "", domain.ErrUnauthorized
	}
	teamID := strings.TrimSpace(actor.TeamID)
	if teamID == "" && !isAdmin(actor) {
		return "", domain.ErrForbidden
	}
	return teamID, nil
}
