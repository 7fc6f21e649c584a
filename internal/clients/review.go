package clients

import (
	"context"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/review"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type ReviewClient struct{ c *Client }

func NewReviewClient(c *Client) *ReviewClient { return &ReviewClient{c: c} }

func (rc *ReviewClient) Create(ctx context.Context, s session.Session, r review.Request) error {
	_, _, err := call[ack](ctx, rc.c, s, http.MethodPost, "reviews", nil, r)
	return err
}
