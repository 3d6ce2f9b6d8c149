package services

// EventPublisher receives domain events after a mutation is committed
type EventPublisher interface {
	PublishEvent(eventType, resourceID string, data any)
}

type noopPublisher struct{}

func (noopPublisher) PublishEvent(string, string, any) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
