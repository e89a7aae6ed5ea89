package quote

import "context"

// DistanceResolver turns a postal code into a road distance in kilometers.
// Failures must be reported as *ServiceUnavailableError, never as 0 km.
type DistanceResolver interface {
	ResolveDistanceKm(ctx context.Context, postalCode string) (float64, error)
}

// QuoteStore persists a submitted quote and returns an opaque reference.
type QuoteStore interface {
	SaveQuote(ctx context.Context, selection *SelectionModel, breakdown *PriceBreakdown) (string, error)
}

// Distance is the resolved delivery distance handed to the calculator.
type Distance struct {
	PostalCode string
	Km         float64
}

// Submission is a saved quote as handed to notifiers.
type Submission struct {
	Reference  string
	Selection  *SelectionModel
	Breakdown  *PriceBreakdown
	ReportPath string
}

// Notifier tells staff about a new quote. Delivery is best effort.
type Notifier interface {
	NotifyQuote(ctx context.Context, s Submission)
}
