package httpclient

import "context"

// BaseResponse carries the raw status and body of an HTTP exchange alongside
// whatever was decoded into the typed result.
type BaseResponse struct {
	StatusCode int
	Body       []byte
}

type HTTPClient interface {
	Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error)
	Post(ctx context.Context, endpoint string, body interface{}, headers map[string]string, result interface{}) (*BaseResponse, error)
}
