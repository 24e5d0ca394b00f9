// internal/app/system/limits/limits.go
package limits

// Size limits for inbound payloads.
const (
	// MaxJSONBody is the largest JSON request body the HTTP API decodes.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxSocketFrame is the default largest inbound websocket frame. A full
	// note body travels in one edit-note frame, so it matches MaxJSONBody.
	MaxSocketFrame = MaxJSONBody
)
