// Package session attaches credential cookies to every outbound request,
// captures credential updates from every inbound response, and owns the
// login/logout state machine.
package session

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Emperor-Koala/ekreader/internal/client/credstore"
)

// BuildCookieHeader builds the outbound Cookie header value from the
// credential store: the session cookie whenever present, and the
// remember-me cookie only while unexpired. A remember value stored without
// an expiry suffix is sent indefinitely; the server decides its real
// lifetime. Store read failures and expired tokens are omitted silently —
// an anonymous request is still a valid request.
func BuildCookieHeader(ctx context.Context, store credstore.Store, now time.Time) string {
	var parts []string

	if v, err := store.Get(ctx, credstore.SessionKey); err == nil && v != "" {
		parts = append(parts, credstore.SessionKey+"="+v)
	}

	if v, err := store.Get(ctx, credstore.RememberKey); err == nil && v != "" {
		value, expiry, hasExpiry := strings.Cut(v, ";")
		if hasExpiry {
			millis, err := strconv.ParseInt(expiry, 10, 64)
			if err == nil && millis >= now.UnixMilli() {
				parts = append(parts, credstore.RememberKey+"="+value)
			}
		} else {
			parts = append(parts, credstore.RememberKey+"="+v)
		}
	}

	return strings.Join(parts, ";")
}

// Some servers pack several Set-Cookie directives into one header value.
// The only safe split point is right before a cookie name we recognize:
// Expires attributes themselves contain commas.
var packedBoundary = regexp.MustCompile(`, (?:` +
	regexp.QuoteMeta(credstore.SessionKey) + `|` +
	regexp.QuoteMeta(credstore.RememberKey) + `)=`)

// CaptureSetCookies persists credential updates carried by the response's
// Set-Cookie headers. An empty value deletes the stored credential
// (server-initiated invalidation); a remember-me directive with an Expires
// attribute is stored as "value;expiresAtEpochMillis". Unrecognized cookie
// names are ignored, and a malformed directive is skipped without dropping
// the rest. This function never fails: store errors are logged and the
// response proceeds to its caller regardless.
func CaptureSetCookies(ctx context.Context, store credstore.Store, headers []string, log *zap.Logger) {
	directives := headers
	if len(headers) == 1 {
		directives = splitPacked(headers[0])
	}

	for _, directive := range directives {
		applyDirective(ctx, store, directive, log)
	}
}

func splitPacked(raw string) []string {
	locs := packedBoundary.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return []string{raw}
	}
	var out []string
	start := 0
	for _, loc := range locs {
		out = append(out, raw[start:loc[0]])
		start = loc[0] + 2 // skip the ", " boundary
	}
	return append(out, raw[start:])
}

func applyDirective(ctx context.Context, store credstore.Store, directive string, log *zap.Logger) {
	parts := strings.Split(directive, ";")
	name, value, ok := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !ok {
		log.Debug("skipping malformed cookie directive", zap.String("directive", directive))
		return
	}
	name = strings.TrimSpace(name)

	if name != credstore.SessionKey && name != credstore.RememberKey {
		return
	}

	if value == "" {
		if err := store.Delete(ctx, name); err != nil {
			log.Warn("failed to delete invalidated credential", zap.String("name", name), zap.Error(err))
		}
		return
	}

	stored := value
	if name == credstore.RememberKey {
		if expires, ok := expiresAt(parts[1:]); ok {
			stored = fmt.Sprintf("%s;%d", value, expires.UnixMilli())
		}
	}

	if err := store.Set(ctx, name, stored); err != nil {
		log.Warn("failed to persist credential", zap.String("name", name), zap.Error(err))
	}
}

// expiresAt finds and parses an Expires attribute among cookie attributes.
func expiresAt(attrs []string) (time.Time, bool) {
	for _, attr := range attrs {
		attr = strings.TrimSpace(attr)
		if !strings.HasPrefix(attr, "Expires") {
			continue
		}
		_, raw, ok := strings.Cut(attr, "=")
		if !ok {
			return time.Time{}, false
		}
		t, err := http.ParseTime(raw)
		if err != nil {
			// Keep the bare value rather than dropping the directive.
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
