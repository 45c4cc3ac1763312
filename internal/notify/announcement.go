package notify

import "context"

// Announcement is the assembled, destination-agnostic message for one
// event. Destinations render it into their own wire format.
type Announcement struct {
	Title          string
	Body           string
	ImageURL       string
	Marketplace    string
	MarketplaceURL string
	ExplorerURL    string
	Color          int
}

const (
	ColorSale    = 0x2ecc71
	ColorListing = 0x3498db
	ColorNaming  = 0x9b59b6
)

// Destination delivers an announcement to one configured endpoint.
type Destination interface {
	Name() string
	Deliver(ctx context.Context, a Announcement) error
}
