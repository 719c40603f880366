package stock

import "context"

// Source produces a point-in-time availability snapshot for a store context.
// Implementations live in infra/source/.
type Source interface {
	// Fetch returns the current availability of every tracked product.
	Fetch(ctx context.Context, sc StoreContext) ([]ProductStatus, error)

	// Name identifies the source in logs and errors.
	Name() string
}

// Sink defines the contract for a notification delivery channel.
// Implementations live in infra/ (Telegram, console).
type Sink interface {
	// Send delivers a rendered message and returns the provider's message ID.
	Send(ctx context.Context, msg *Message) (string, error)

	// Name identifies the sink in logs and errors.
	Name() string
}

// Renderer turns a composed payload into a deliverable message body.
// Implementations live in infra/template/.
type Renderer interface {
	Render(payload *Payload) (subject, html, text string, err error)
}

// FetchRecorder is notified after every successful snapshot fetch.
type FetchRecorder interface {
	RecordFetch(ctx context.Context) error
}

// RunObserver receives every finished run, successful or not.
type RunObserver interface {
	ObserveRun(ctx context.Context, report *RunReport, err error)
}
