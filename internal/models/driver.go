package models

// Driver is the locally cached driver profile. The agent keeps at most one row.
type Driver struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	LastSyncedAt *int64 `json:"last_synced_at" db:"last_synced_at"`
}

// Session is the single persisted login row
type Session struct {
	SessionKey string  `db:"session_key"`
	DriverID   *string `db:"driver_id"`
}

// CurrentSessionKey is the key of the only session row
const CurrentSessionKey = "current"

// BackendDriver is a driver account on the sync backend
type BackendDriver struct {
	ID        string `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	PinHash   string `json:"-" db:"pin_hash"` // Never return the hash in JSON
	Role      string `json:"role" db:"role"`  // "driver" or "dispatcher"
	CreatedAt int64  `json:"created_at" db:"created_at"`
	UpdatedAt int64  `json:"updated_at" db:"updated_at"`
}

// DriverProfile is what the backend returns for a driver lookup
type DriverProfile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ToProfile strips credentials from a backend driver
func (d *BackendDriver) ToProfile() DriverProfile {
	return DriverProfile{ID: d.ID, Name: d.Name}
}

// FCMToken represents a Firebase Cloud Messaging token for a driver device
type FCMToken struct {
	ID         int    `json:"id" db:"id"`
	DriverID   string `json:"driver_id" db:"driver_id"`
	Token      string `json:"token" db:"token"`
	DeviceType string `json:"device_type" db:"device_type"` // "ios", "android" or "agent"
	CreatedAt  int64  `json:"created_at" db:"created_at"`
	UpdatedAt  int64  `json:"updated_at" db:"updated_at"`
}
