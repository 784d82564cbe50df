package auth

// DevAuthRequest - запрос на dev-авторизацию
type DevAuthRequest struct {
	OwnerID string `json:"owner_id"`
}

// DevAuthResponse - ответ на dev-авторизацию
type DevAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	OwnerID     string `json:"owner_id"`
}

// ErrorResponse - формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
