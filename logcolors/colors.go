package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"

	BrightGreen   = "\033[92m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"

	Red       = "\033[31m"
	BrightRed = "\033[91m"
)

// Cache-related log prefixes
const (
	LogCache         = Blue + "[Cache]" + Reset
	LogCacheSweep    = Blue + "[Cache:Sweep]" + Reset
	LogCacheClear    = Blue + "[Cache:Clear]" + Reset
	LogCacheFallback = Cyan + "[Cache:Fallback]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// endpointColors rotate by hash so each upstream path keeps a stable color
var endpointColors = []string{
	Green, Blue, Purple, Cyan, Red,
	BrightGreen, BrightBlue, BrightMagenta, BrightCyan, BrightRed,
}

// Endpoint returns a colored upstream path for log messages.
// The same path always gets the same color.
func Endpoint(path string) string {
	hash := 0
	for _, c := range path {
		hash += int(c)
	}
	color := endpointColors[hash%len(endpointColors)]
	return color + path + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
)

// Notification log prefixes
const (
	LogNotifier = Cyan + "[Notifier]" + Reset
)

// Domain log prefixes
const (
	LogHTTP     = Cyan + "[HTTP]" + Reset
	LogUpstream = Purple + "[Upstream]" + Reset
	LogFilters  = Green + "[Filters]" + Reset
	LogMetadata = Blue + "[Metadata]" + Reset
	LogSearch   = Blue + "[Search]" + Reset
	LogBrowse   = Green + "[Browse]" + Reset
	LogWarning  = Red + "[Warning]" + Reset
)
