package domain

// User is the authenticated admin profile returned by login and refresh.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Session is the persisted credential bundle. A session with a non-empty
// access token always carries its refresh pair; Clear wipes both together.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// IsAuthenticated reports whether the session holds a usable access token.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

// Valid reports whether the session satisfies the pairing invariant: an
// access token must never be persisted without its refresh token.
func (s Session) Valid() bool {
	return s.AccessToken == "" || s.RefreshToken != ""
}

// LoginRequest exchanges admin credentials for a token pair.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token pair and profile.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the replacement token pair. User is optional;
// when absent the previously known profile is kept.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// AdminRegisterRequest creates a new admin account (privileged).
type AdminRegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminRegisterResponse echoes the created account.
type AdminRegisterResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}
