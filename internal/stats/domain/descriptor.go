package domain

// Capabilities declares which filter concerns a provider can honor
// server-side. Anything undeclared becomes a residual client-side filter.
type Capabilities struct {
	DateRange  bool
	Season     bool
	SeasonType bool
	TeamID     bool
	PlayerID   bool
	GameID     bool
	HomeAway   bool
}

// ProviderDescriptor binds one (dataset, league) pair to a provider adapter
// and its declared capabilities. Descriptors are registered once at startup
// and read-only afterward, except for administrative re-registration.
type ProviderDescriptor struct {
	// ProviderID identifies the upstream source; it is the rate limiter's
	// bucket key, shared by every descriptor backed by the same source.
	ProviderID string

	Dataset      Dataset
	League       League
	Capabilities Capabilities

	// RequiresGameID marks providers that can only answer per-game queries.
	// Season-level requests against such a provider go through the
	// schedule-then-fetch path.
	RequiresGameID bool

	Adapter Provider
}
