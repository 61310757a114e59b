package dto

import "time"

type VerifyUserRequest struct {
	UserID   int64  `json:"user_id"`
	InitData string `json:"init_data"`
}

type VerifyUserResponse struct {
	Valid          bool       `json:"valid"`
	Reason         string     `json:"reason"`
	SessionToken   string     `json:"session_token,omitempty"`
	SessionExpires *time.Time `json:"session_expires,omitempty"`
}
