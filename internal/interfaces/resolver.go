package interfaces

import "context"

// Resolver maps a free-text company reference to a ticker symbol. Returns
// faults.ErrNoCompany when the message names no company, and a resolution
// fault when the extraction call itself fails.
type Resolver interface {
	Resolve(ctx context.Context, message string) (string, error)
}
