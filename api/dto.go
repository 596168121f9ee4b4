/*
dto.go - Request/response types for the HTTP surface

Request fields are pointers so a missing field is distinguishable from
a legitimate zero value: the reference this engine replaces rejected a
zero-point grant as "missing", which this API deliberately does not.
Validation itself lives in the handlers and the ledger service; DTOs
are pure data carriers.
*/
package api

// AddPointsRequest is the body of POST /add. All three fields are
// required.
type AddPointsRequest struct {
	Payer     *string `json:"payer"`
	Points    *int64  `json:"points"`
	Timestamp *string `json:"timestamp"`
}

// AddPointsResponse acknowledges a recorded grant.
type AddPointsResponse struct {
	Msg string `json:"msg"`
	ID  string `json:"id"`
}

// SpendRequest is the body of POST /spend.
type SpendRequest struct {
	Points *int64 `json:"points"`
}

// SpendResultDTO is one entry of the spend response: points removed
// from a payer, negative, in the order payers were first debited.
type SpendResultDTO struct {
	Payer  string `json:"payer"`
	Points int64  `json:"points"`
}

// GrantDTO is one raw ledger entry in GET /grants responses.
type GrantDTO struct {
	ID        string `json:"id"`
	Payer     string `json:"payer"`
	Points    int64  `json:"points"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Msg string `json:"msg"`
}
