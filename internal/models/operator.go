package models

import "time"

// OperatorRole is the JWT role granted to operator console users
const OperatorRole = "operator"

// OperatorLoginRequest is the body of POST /api/v1/operator/login
type OperatorLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OperatorLoginResponse carries the operator access token
type OperatorLoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}
