package telegram

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/angelmondragon/miniapp-storefront/internal/contact"
)

// User is the subset of the WebApp user object the storefront reads.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// InitData is the parsed WebApp launch payload. Raw is forwarded to the backend
// unchanged so it can verify the signature.
type InitData struct {
	Raw  string
	User *User
}

// ParseInitData reads the query-string payload handed to the mini app. Malformed
// input yields a payload without a user; it is never an error.
func ParseInitData(raw string) InitData {
	data := InitData{Raw: strings.TrimSpace(raw)}
	if data.Raw == "" {
		return data
	}
	values, err := url.ParseQuery(data.Raw)
	if err != nil {
		return data
	}
	encoded := values.Get("user")
	if encoded == "" {
		return data
	}
	var user User
	if err := json.Unmarshal([]byte(encoded), &user); err != nil {
		return data
	}
	data.User = &user
	return data
}

// Identity implements contact.IdentityProvider. Without any payload there is no identity.
func (d InitData) Identity() (*contact.Identity, bool) {
	if d.Raw == "" && d.User == nil {
		return nil, false
	}
	identity := &contact.Identity{CorrelationToken: d.Raw}
	if d.User != nil {
		identity.DisplayName = d.User.FirstName
		identity.Username = d.User.Username
		if d.User.ID != 0 {
			id := d.User.ID
			identity.ExternalID = &id
		}
	}
	return identity, true
}
