package prefs

// KeyLastShownServer stores the id of the last displayed server, so
// the console can return to it on the next start.
const KeyLastShownServer = "last_shown_server"

// MetricsPromptedKey marks that the user has already been asked to
// opt into metrics for the given server.
func MetricsPromptedKey(serverID string) string {
	return "metrics_prompted/" + serverID
}

// FeatureDismissedKey marks a per-feature "don't show again" flag.
func FeatureDismissedKey(feature string) string {
	return "dismissed/" + feature
}
