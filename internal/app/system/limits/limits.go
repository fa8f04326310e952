// internal/app/system/limits/limits.go
package limits

// Request size limits for the API.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBodySize caps JSON request bodies for group and chat endpoints.
	MaxJSONBodySize = 64 << 10 // 64 KB

	// MaxWSFrameSize caps a single inbound WebSocket frame.
	MaxWSFrameSize = 16 << 10 // 16 KB
)
