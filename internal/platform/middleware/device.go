package middleware

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"
)

type contextKeyDevice struct{}

// DeviceInfo summarizes the client user agent for security-event context.
type DeviceInfo struct {
	Browser string
	OS      string
	Mobile  bool
	Bot     bool
}

// GetDevice retrieves the parsed device info from the context.
func GetDevice(ctx context.Context) DeviceInfo {
	if d, ok := ctx.Value(contextKeyDevice{}).(DeviceInfo); ok {
		return d
	}
	return DeviceInfo{}
}

// WithDevice injects device info into a context, for tests that skip the
// HTTP chain.
func WithDevice(ctx context.Context, info DeviceInfo) context.Context {
	return context.WithValue(ctx, contextKeyDevice{}, info)
}

// Device parses the User-Agent header once per request and stores the
// summary in the context.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := useragent.New(r.UserAgent())
		name, version := ua.Browser()
		info := DeviceInfo{
			Browser: name + " " + version,
			OS:      ua.OS(),
			Mobile:  ua.Mobile(),
			Bot:     ua.Bot(),
		}
		next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), info)))
	})
}
