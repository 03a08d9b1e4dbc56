package model

// IdentityRecord is a known nickname for an address.
type IdentityRecord struct {
	Address      string `json:"address"`
	Nickname     string `json:"nickname"`
	HideActivity bool   `json:"hide_activity"`
}
