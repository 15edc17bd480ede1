package kvcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow ones with
// hooks/async.
type Hooks interface {
	// The adapter failed while an Item was being fetched. The Item is a miss.
	ReadFailed(key string, err error)

	// A stored value could not be decoded. The Item is a miss.
	DecodeFailed(key string, err error)

	// A write did not reach the store.
	// op ∈ {"save", "delete", "increment", "decrement", "clear"}
	WriteFailed(key, op string, err error)

	// A batch finished with failed of requested members not applied.
	// op ∈ {"save", "delete"}
	BatchPartial(op string, requested, failed int)

	// SetAdapter replaced the backing store.
	AdapterSwapped(from, to string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ReadFailed(string, error)          {}
func (NopHooks) DecodeFailed(string, error)        {}
func (NopHooks) WriteFailed(string, string, error) {}
func (NopHooks) BatchPartial(string, int, int)     {}
func (NopHooks) AdapterSwapped(string, string)     {}
