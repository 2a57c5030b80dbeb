// Package catalog covers the read-only game and seat-map endpoints.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/iliyamo/sportstix-client/internal/model"
	"github.com/iliyamo/sportstix-client/internal/transport"
)

// Service wraps the catalog reads. All of them are plain request/response
// calls; the interesting synchronization lives elsewhere.
type Service struct {
	client *transport.Client
}

// NewService builds a catalog Service over the shared transport.
func NewService(client *transport.Client) *Service {
	return &Service{client: client}
}

// Games lists games with optional filters and pagination.
func (s *Service) Games(ctx context.Context, params model.GameListParams) (model.Page[model.Game], error) {
	q := url.Values{}
	if params.Status != "" {
		q.Set("status", string(params.Status))
	}
	if params.TeamName != "" {
		q.Set("teamName", params.TeamName)
	}
	if params.From != nil {
		q.Set("from", params.From.Format(time.RFC3339))
	}
	if params.To != nil {
		q.Set("to", params.To.Format(time.RFC3339))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Size > 0 {
		q.Set("size", strconv.Itoa(params.Size))
	}
	return transport.Get[model.Page[model.Game]](ctx, s.client, "/games", q)
}

// Game fetches one game with its venue and per-section availability.
func (s *Service) Game(ctx context.Context, gameID uint64) (model.GameDetail, error) {
	return transport.Get[model.GameDetail](ctx, s.client, fmt.Sprintf("/games/%d", gameID), nil)
}

// Seats fetches the seat map of one section of a game.
func (s *Service) Seats(ctx context.Context, gameID, sectionID uint64) ([]model.GameSeat, error) {
	q := url.Values{"sectionId": []string{strconv.FormatUint(sectionID, 10)}}
	return transport.Get[[]model.GameSeat](ctx, s.client, fmt.Sprintf("/games/%d/seats", gameID), q)
}
