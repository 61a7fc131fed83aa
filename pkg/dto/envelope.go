package dto

// Response is the body of every HTTP response. Data is omitted on failures.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
