package postgres

import (
	"errors"

	"gorm.io/gorm"
)

type Repositories struct {
	Notifications *NotificationRepository
	Connections   *ConnectionRepository
	Emails        *InboundEmailRepository
	Blacklist     *BlacklistRepository
	EventDedup    *EventDedupRepository
	DispatchLog   *DispatchLogRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Notifications: &NotificationRepository{db: db},
		Connections:   &ConnectionRepository{db: db},
		Emails:        &InboundEmailRepository{db: db},
		Blacklist:     &BlacklistRepository{db: db},
		EventDedup:    &EventDedupRepository{db: db},
		DispatchLog:   &DispatchLogRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
