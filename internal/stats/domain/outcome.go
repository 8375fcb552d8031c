package domain

import "context"

// OutcomeStatus tags an adapter result. Some providers return a structurally
// valid but empty payload both for "no data yet" and for "unsupported query";
// adapters must distinguish the two here explicitly so downstream layers
// never infer failure from emptiness.
type OutcomeStatus int

const (
	// StatusOK means the fetch succeeded and Table carries the rows
	// (possibly zero of them after masking).
	StatusOK OutcomeStatus = iota
	// StatusEmpty means the query was well formed but matched no data.
	StatusEmpty
	// StatusNotSupported means the provider cannot answer this query type.
	StatusNotSupported
)

// Outcome is the tagged result crossing the adapter boundary.
type Outcome struct {
	Status OutcomeStatus
	Table  Table
}

// OK wraps rows in a successful outcome.
func OK(t Table) Outcome { return Outcome{Status: StatusOK, Table: t} }

// Empty constructs the zero-rows-by-design outcome with the given columns.
func Empty(columns ...string) Outcome {
	return Outcome{Status: StatusEmpty, Table: NewTable(columns...)}
}

// NotSupported constructs the explicit unsupported outcome.
func NotSupported() Outcome { return Outcome{Status: StatusNotSupported} }

// Provider is the single-method contract every data-source integration
// implements. Zero rows means "no data", signaled via the outcome status,
// never via an error. Errors are reserved for transport or provider faults
// and must be pre-classified transient or permanent.
type Provider interface {
	Fetch(ctx context.Context, params map[string]any) (Outcome, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, params map[string]any) (Outcome, error)

func (f ProviderFunc) Fetch(ctx context.Context, params map[string]any) (Outcome, error) {
	return f(ctx, params)
}
