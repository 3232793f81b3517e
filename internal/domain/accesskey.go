package domain

// AccessKey is a connection profile issued by a proxy server,
// optionally subject to its own data quota.
type AccessKey struct {
	// ID is opaque and unique per server.
	ID string `json:"id"`

	Name string `json:"name"`

	// AccessURL is the connection URL handed to the end user.
	AccessURL string `json:"access_url"`

	// DataLimit, when set, overrides the server default for this key.
	DataLimit *DataLimit `json:"data_limit,omitempty"`
}

// DataLimit is a byte quota. Bytes is always non-negative.
type DataLimit struct {
	Bytes int64 `json:"bytes"`
}

// EffectiveLimit returns the quota that applies to key: the key's own
// limit when present, otherwise the server-wide default. Nil means
// unlimited.
func EffectiveLimit(defaultLimit *DataLimit, key AccessKey) *DataLimit {
	if key.DataLimit != nil {
		return key.DataLimit
	}
	return defaultLimit
}
