/*
Package events provides an in-process publish/subscribe broker for release
lifecycle events.

Every significant transition — deploy started, canary passed, rollback
completed — is published as a typed event. The CLI subscribes to render
the stream for operators; future consumers (webhooks, chat notifications)
attach the same way without touching controller code.

# Event Flow

	controller ──Publish──▶ Broker ──fan out──▶ subscriber channels

Delivery is best-effort: a subscriber that stops draining its channel
drops events rather than blocking a release operation. The authoritative
record is the log stream and persisted state, not the event bus.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for event := range sub {
			fmt.Printf("%s %s: %s\n", event.Timestamp, event.Type, event.Message)
		}
	}()

	broker.Publish(events.EventCanaryStarted, "production",
		"10% traffic to green", map[string]string{"color": "green"})

# See Also

  - pkg/controller - Publishes lifecycle events during operations
*/
package events
