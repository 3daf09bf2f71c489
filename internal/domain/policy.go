package domain

// AccessInput is what the optional policy gate sees for every open attempt.
type AccessInput struct {
	VaultID       string  `json:"vault_id"`
	OwnerID       string  `json:"owner_id"`
	UserID        string  `json:"user_id"`
	KeyType       KeyType `json:"key_type"`
	IsBroadcast   bool    `json:"is_broadcast"`
	IsSystemVault bool    `json:"is_system_vault"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}
