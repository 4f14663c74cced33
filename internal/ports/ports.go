package ports

import (
	"appointment-agent/internal/entity"
	"context"
)

// Querier runs a single selector against a document, element or shadow root.
// A missing match is reported as (nil, nil).
type Querier interface {
	Query(ctx context.Context, selector string) (Element, error)
}

type Element interface {
	Querier

	// ShadowRootOrSelf returns the element's shadow root when it has one, else the element itself.
	ShadowRootOrSelf(ctx context.Context) (Element, error)
	IsConnected(ctx context.Context) (bool, error)
	IsVisible(ctx context.Context) (bool, error)
	// IsIntersectingViewport reports viewport intersection at a zero threshold.
	IsIntersectingViewport(ctx context.Context) (bool, error)
	ScrollIntoCenter(ctx context.Context) error
	ControlType(ctx context.Context) (string, error)
	Focus(ctx context.Context) error
	Type(ctx context.Context, text string) error
	// AssignValue sets the value property and dispatches bubbling input and change events.
	AssignValue(ctx context.Context, value string) error
	Click(ctx context.Context) error
	Value(ctx context.Context) (string, error)
	SelectOption(ctx context.Context, value string) error
	OptionValues(ctx context.Context) ([]string, error)
}

type Session interface {
	Querier

	Navigate(ctx context.Context, url string) error
	// ExpectNavigation runs action and waits for the page transition it triggers.
	ExpectNavigation(ctx context.Context, action func() error) error
	FetchBody(ctx context.Context, url string) ([]byte, error)
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

type Driver interface {
	Launch(ctx context.Context) error
	NewSession(ctx context.Context, opts entity.SessionOptions) (Session, error)
	Close(ctx context.Context) error
	IsReady() bool
}

type Notifier interface {
	Notify(ctx context.Context, message string)
	Close(ctx context.Context) error
}

// Confirmer finalises a booking once a date and time are selected.
type Confirmer interface {
	Confirm(ctx context.Context, session Session) (bool, error)
}
