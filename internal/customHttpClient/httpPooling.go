package customHttpClient

import (
	"net/http"

	"github.com/plantdex/plantdex/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

// Transport is shared by every outbound HTTP client (object store, ethics
// model) so connections are pooled across components.
func Transport() *http.Transport {
	return customTransport
}
