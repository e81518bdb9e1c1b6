package models

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	DriverID string `json:"driver_id"`
	PIN      string `json:"pin"`
}

// LoginResponse is returned by POST /api/auth/login
type LoginResponse struct {
	OK     bool           `json:"ok"`
	Token  string         `json:"token,omitempty"`
	Driver *DriverProfile `json:"driver,omitempty"`
}

// UploadResult is returned by POST /api/trips
type UploadResult struct {
	TripID    string `json:"trip_id"`
	Duplicate bool   `json:"duplicate"`
}

// FCMTokenRequest is the body of POST /api/driver/fcm-token
type FCMTokenRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}
