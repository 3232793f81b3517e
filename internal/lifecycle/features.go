package lifecycle

import goversion "github.com/hashicorp/go-version"

// FeatureSet lists management features gated on the proxy software
// version a server reports.
type FeatureSet struct {
	// AccessKeyPortEditable: the access-key port can be changed.
	AccessKeyPortEditable bool

	// DefaultDataLimit: a server-wide default quota is supported.
	DefaultDataLimit bool

	// HostnameEditable: the hostname used in access-key URLs can be
	// changed.
	HostnameEditable bool

	// PerKeyDataLimit: individual access keys can carry their own
	// quota.
	PerKeyDataLimit bool
}

var (
	minAccessKeyPortEdit = goversion.Must(goversion.NewVersion("1.0.0"))
	minDefaultDataLimit  = goversion.Must(goversion.NewVersion("1.1.0"))
	minHostnameEdit      = goversion.Must(goversion.NewVersion("1.2.0"))
	minPerKeyDataLimit   = goversion.Must(goversion.NewVersion("1.6.0"))
)

// FeaturesForVersion gates each feature on the reported version. An
// absent or unparseable version disables everything.
func FeaturesForVersion(raw string) FeatureSet {
	if raw == "" {
		return FeatureSet{}
	}
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return FeatureSet{}
	}
	return FeatureSet{
		AccessKeyPortEditable: v.GreaterThanOrEqual(minAccessKeyPortEdit),
		DefaultDataLimit:      v.GreaterThanOrEqual(minDefaultDataLimit),
		HostnameEditable:      v.GreaterThanOrEqual(minHostnameEdit),
		PerKeyDataLimit:       v.GreaterThanOrEqual(minPerKeyDataLimit),
	}
}
