package api

// APIResponse is the standard response envelope for every route this
// server exposes.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// KeyValue is one entry in the /keys listing.
type KeyValue struct {
	Key   uint64 `json:"key"`
	Value uint64 `json:"value"`
}
