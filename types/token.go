package types

// TokenScope names the API a delivery token grants access to.
type TokenScope string

const (
	ScopeEntries  TokenScope = "entries"
	ScopeImages   TokenScope = "images"
	ScopeRegistry TokenScope = "registry"
	ScopeMedia    TokenScope = "media"
)

// DefaultScopes lists the scopes that receive a token at bootstrap.
var DefaultScopes = []TokenScope{ScopeEntries, ScopeImages, ScopeRegistry, ScopeMedia}

// TokenState reports whether a token is accepted by the delivery APIs.
type TokenState string

const (
	TokenEnabled  TokenState = "enabled"
	TokenDisabled TokenState = "disabled"
)

// TokenIcon is the admin panel icon for a token.
type TokenIcon struct {
	Icon string `yaml:"icon" json:"icon"`
	Set  string `yaml:"set" json:"set"`
}

// AccessToken is an API credential stored as one document per token.
type AccessToken struct {
	// Token is the random hex value. Like Account.ID it is the storage key.
	Token string `yaml:"-" json:"token"`

	// Scope is the API namespace the token belongs to.
	Scope TokenScope `yaml:"-" json:"scope"`

	Title string    `yaml:"title" json:"title"`
	Icon  TokenIcon `yaml:"icon" json:"icon"`

	// LimitCalls caps the number of calls; 0 means unlimited.
	LimitCalls int `yaml:"limit_calls" json:"limit_calls"`

	// Calls counts the calls made with the token so far.
	Calls int `yaml:"calls" json:"calls"`

	State TokenState `yaml:"state" json:"state"`
	UUID  string     `yaml:"uuid" json:"uuid"`

	CreatedBy string `yaml:"created_by" json:"created_by"`
	CreatedAt string `yaml:"created_at" json:"created_at"`
	UpdatedBy string `yaml:"updated_by" json:"updated_by"`
	UpdatedAt string `yaml:"updated_at" json:"updated_at"`
}

// DefaultTokens holds the token values minted at bootstrap, one per scope.
type DefaultTokens struct {
	Entries  string `json:"entries"`
	Images   string `json:"images"`
	Registry string `json:"registry"`
	Media    string `json:"media"`
}

// Set records the token for scope.
func (d *DefaultTokens) Set(scope TokenScope, token string) {
	switch scope {
	case ScopeEntries:
		d.Entries = token
	case ScopeImages:
		d.Images = token
	case ScopeRegistry:
		d.Registry = token
	case ScopeMedia:
		d.Media = token
	}
}

// Get returns the token for scope.
func (d DefaultTokens) Get(scope TokenScope) string {
	switch scope {
	case ScopeEntries:
		return d.Entries
	case ScopeImages:
		return d.Images
	case ScopeRegistry:
		return d.Registry
	case ScopeMedia:
		return d.Media
	}
	return ""
}
