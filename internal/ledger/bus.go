package ledger

// NopBus drops every event. Used when no message bus is configured.
type NopBus struct{}

func (NopBus) Publish(string, []byte) error { return nil }
