package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty, or the single entry
	// "*", allows every origin.
	AllowOrigins []string

	// AllowMethods lists the methods clients may use. Defaults to
	// "GET, POST, PUT, DELETE, OPTIONS".
	AllowMethods []string

	// AllowHeaders lists request headers clients may send. When empty,
	// the preflight's Access-Control-Request-Headers is echoed back.
	AllowHeaders []string

	// AllowCredentials exposes responses to credentialed requests.
	// Credentials force specific-origin echo; the wildcard is dropped.
	AllowCredentials bool

	// MaxAge is how long, in seconds, preflight results may be cached.
	MaxAge int
}

// CORS returns a middleware that answers preflight requests and sets
// Cross-Origin Resource Sharing headers on actual responses. Origin
// matching is case-insensitive; the origin's original casing is echoed.
func CORS(cfg CORSConfig) Middleware {
	allowAll := len(cfg.AllowOrigins) == 0
	allowed := make(map[string]struct{}, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.ToLower(o)] = struct{}{}
	}
	if cfg.AllowCredentials {
		// "*" with credentials is forbidden by the fetch spec.
		allowAll = false
	}

	methods := strings.Join(cfg.AllowMethods, ", ")
	if methods == "" {
		methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := ""

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")

			_, originAllowed := allowed[strings.ToLower(origin)]
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case originAllowed:
				w.Header().Set("Access-Control-Allow-Origin", origin)
			default:
				next.ServeHTTP(w, r)
				return
			}

			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if expose != "" {
				w.Header().Set("Access-Control-Expose-Headers", expose)
			}

			// Preflight: OPTIONS with a requested method.
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")
				w.Header().Set("Access-Control-Allow-Methods", methods)
				if headers != "" {
					w.Header().Set("Access-Control-Allow-Headers", headers)
				} else if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
				}
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
