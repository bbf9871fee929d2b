package billing

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

// CheckoutInput describes a subscription checkout for one user.
type CheckoutInput struct {
	UserID        uint
	CustomerEmail string
	PriceID       string
	SuccessURL    string
	CancelURL     string
}

// CheckoutRequest is the optional client payload of the checkout endpoint.
type CheckoutRequest struct {
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}
