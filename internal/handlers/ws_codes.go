// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handlers. They give clients
// a more specific reason than the standard range allows.
const (
	BadSubprotocolError   = 3000 // client connected with an unsupported subprotocol
	InvalidAuthTokenError = 3001 // auth token was invalid or expired
	InvalidUserIDError    = 3002 // user id derived from the token was malformed
	InvalidGameIDError    = 3003 // target game id in the WS URL does not exist
)
