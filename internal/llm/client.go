package llm

import (
	"context"
)

//go:generate mockgen -source=client.go -destination=mocks/mock_client.go -package=mocks

// Client is an interface for invoking chat models with tool support.
// This allows mocking in tests without making real API calls
type Client interface {
	CreateMessage(ctx context.Context, request Request) (*Response, error)
}
