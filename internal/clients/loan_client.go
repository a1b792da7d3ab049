package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"libracatalog/internal/circulation"
	"libracatalog/internal/journal"
)

type LoanClient struct {
	base
}

func NewLoanClient(baseURL string, httpClient *http.Client) *LoanClient {
	return &LoanClient{base: newBase("loans", baseURL, httpClient)}
}

func (c *LoanClient) Checkout(ctx context.Context, req circulation.CheckoutRequest) (*circulation.Loan, error) {
	var loan circulation.Loan
	if err := c.do(ctx, http.MethodPost, "/checkout", req, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *LoanClient) ReturnItem(ctx context.Context, itemID int) (*circulation.Return, error) {
	var ret circulation.Return
	if err := c.do(ctx, http.MethodPost, "/return", circulation.ReturnRequest{ItemID: itemID}, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// OverdueReport lists overdue loans; days <= 0 lets the server pick its default.
func (c *LoanClient) OverdueReport(ctx context.Context, days int) ([]circulation.OverdueView, error) {
	path := "/overdue"
	if days > 0 {
		path = fmt.Sprintf("/overdue?days=%d", days)
	}

	var overdue []circulation.OverdueView
	if err := c.do(ctx, http.MethodGet, path, nil, &overdue); err != nil {
		return nil, err
	}
	return overdue, nil
}

func (c *LoanClient) Activity(ctx context.Context, afterSeq int64, limit int) ([]journal.Event, error) {
	params := url.Values{}
	params.Set("after", strconv.FormatInt(afterSeq, 10))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var events []journal.Event
	if err := c.do(ctx, http.MethodGet, "/activity?"+params.Encode(), nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ItemHistory returns the loan events recorded for one item.
func (c *LoanClient) ItemHistory(ctx context.Context, itemID int) ([]journal.Event, error) {
	var events []journal.Event
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/items/%d/activity", itemID), nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}
