package ports

import "context"

type ReceivedMessage struct {
	Topic   string
	Payload []byte
}

// EventConsumer polls the broker for domain event envelopes.
type EventConsumer interface {
	Poll(ctx context.Context, max int) ([]ReceivedMessage, error)
	Close() error
}

// BlacklistCache is the read-through cache in front of the blacklist
// repository. A miss returns found=false; errors degrade to repo lookups.
type BlacklistCache interface {
	Get(ctx context.Context, teamID, normalizedAddress string) (blocked bool, found bool, err error)
	Set(ctx context.Context, teamID, normalizedAddress string, blocked bool) error
}
