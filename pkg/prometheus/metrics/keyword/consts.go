package keyword

var (
	BlocksAllocated = "refptr_blocks_allocated_total" // count blocks taken from the pool
	BlocksFreed     = "refptr_blocks_freed_total"     // count blocks returned to the pool
	BlocksLive      = "refptr_blocks_live"
	TargetsDisposed = "refptr_targets_disposed_total"
	ValuesDisposed  = "refptr_values_disposed_total" // array elements count one by one
	Promotions      = "refptr_weak_promotions_total"

	StoreHits     = "refptr_store_hits_total"
	StoreWeakHits = "refptr_store_weak_hits_total" // found through the weak index only
	StoreMisses   = "refptr_store_misses_total"
	StoreEvicted  = "refptr_store_evicted_total"
	StoreLength   = "refptr_store_length"
	WeakIndexLen  = "refptr_store_weak_index_length"

	SelfCheckRuns       = "refptr_selfcheck_runs_total"
	SelfCheckDurationMs = "refptr_selfcheck_duration_ms"

	HttpRequests     = "refptr_http_requests_total"
	HttpResponses    = "refptr_http_responses_total"
	HttpResponseTime = "refptr_http_response_time_ms"
)
