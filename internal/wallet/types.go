package wallet

// Asset describes a token held by a custodial wallet. Decimals come from the
// backend record and drive all base-unit conversion.
type Asset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	LogoURL  string `json:"logo_url"`
}

type Network struct {
	Name string `json:"name"`
}

// Balance is one row of a wallet overview.
type Balance struct {
	Balance          string   `json:"balance"`
	OnHold           string   `json:"on_hold"`
	AvailableBalance string   `json:"available_balance"`
	Asset            Asset    `json:"asset"`
	PriceUSD         string   `json:"price_usd"`
	ValueUSD         string   `json:"value_usd"`
	Network          *Network `json:"network,omitempty"`
}

type Workspace struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Role string `json:"role"`
}

type Wallet struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	WalletType string `json:"wallet_type"`
	ValueUSD   string `json:"value_usd"`
}

type Withdrawal struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// AuthSessionStart is the backend's answer to a session request: the id the
// coordinator polls on and the code the user enters on the dashboard.
type AuthSessionStart struct {
	SessionRequestID string `json:"session_request_id"`
	VerificationCode string `json:"verification_code"`
}

// AuthStatus reports handshake progress. EncryptedKey and AccessToken are
// populated only once Status is "completed".
type AuthStatus struct {
	Status       string `json:"status"`
	EncryptedKey string `json:"encrypted_key"`
	AccessToken  string `json:"access_token"`
}

// StatusCompleted is the terminal session-request status.
const StatusCompleted = "completed"
