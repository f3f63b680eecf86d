// Provides middleware for standardizing HTTP handlers.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/maruel/ksid"
	"github.com/vyaparitrack/vyaparitrack/internal/server/dto"
	"github.com/vyaparitrack/vyaparitrack/internal/server/handlers"
	"github.com/vyaparitrack/vyaparitrack/internal/server/metrics"
	"github.com/vyaparitrack/vyaparitrack/internal/server/ratelimit"
	"github.com/vyaparitrack/vyaparitrack/internal/server/reqctx"
	"github.com/vyaparitrack/vyaparitrack/internal/storage/identity"
)

// env carries what every wrapped handler needs.
type env struct {
	svc      *handlers.Services
	auth     *handlers.AuthHandler
	limiters *ratelimit.Limiters
	maxBody  int64
}

// Wrap wraps an unauthenticated handler function to work as an
// http.Handler.
//
// The request is decoded from the JSON body, then fields tagged
// `path:"name"` and `query:"name"` are populated from the URL and the
// request is validated before fn runs.
//
// Example:
//
//	type IDRequest struct {
//	    ID ksid.ID `path:"id" json:"-"`
//	}
//
//	func (h *Handler) Get(ctx context.Context, req *IDRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](e *env, fn func(context.Context, PtrIn) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w, ok := e.allow(ctx, w, e.limiters.MatchUnauth(r.Method, r.URL.Path), nil)
		if !ok {
			return
		}
		in, err := decode[In, PtrIn](w, r, e.maxBody)
		if err != nil {
			handlers.WriteError(ctx, w, err)
			return
		}
		out, err := fn(ctx, in)
		e.finish(ctx, w, r, nil, out, err)
	})
}

// WrapAuth wraps a handler that requires a valid bearer token and at least
// minRole.
func WrapAuth[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](e *env, minRole identity.Role, fn func(context.Context, *identity.User, PtrIn) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, w, user, ok := e.authorize(w, r, minRole)
		if !ok {
			return
		}
		in, err := decode[In, PtrIn](w, r, e.maxBody)
		if err != nil {
			handlers.WriteError(ctx, w, err)
			return
		}
		out, err := fn(ctx, user, in)
		e.finish(ctx, w, r, user, out, err)
	})
}

// WrapVendor wraps a handler working within a vendor scope. The scope is the
// user's vendor, or for unbound admins the optional vendor_id query
// parameter (zero meaning every vendor).
func WrapVendor[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](e *env, minRole identity.Role, fn func(context.Context, ksid.ID, *identity.User, PtrIn) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, w, user, ok := e.authorize(w, r, minRole)
		if !ok {
			return
		}
		scope, err := vendorScope(user, r)
		if err != nil {
			handlers.WriteError(ctx, w, err)
			return
		}
		in, err := decode[In, PtrIn](w, r, e.maxBody)
		if err != nil {
			handlers.WriteError(ctx, w, err)
			return
		}
		out, err := fn(ctx, scope, user, in)
		e.finish(ctx, w, r, user, out, err)
	})
}

// limitUnauth applies the unauthenticated rate limit tiers to a plain
// handler.
func (e *env) limitUnauth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w, ok := e.allow(r.Context(), w, e.limiters.MatchUnauth(r.Method, r.URL.Path), nil)
		if ok {
			next(w, r)
		}
	})
}

// authorize validates the bearer token, the rate limit and the role.
func (e *env) authorize(w http.ResponseWriter, r *http.Request, minRole identity.Role) (context.Context, http.ResponseWriter, *identity.User, bool) {
	ctx := r.Context()
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		handlers.WriteError(ctx, w, dto.Unauthorized())
		return ctx, w, nil, false
	}
	user, sessionID, err := e.auth.ValidateToken(token)
	if err != nil {
		handlers.WriteError(ctx, w, dto.Unauthorized().Wrap(err))
		return ctx, w, nil, false
	}
	ctx = reqctx.WithSessionID(ctx, sessionID)
	if w, ok = e.allow(ctx, w, e.limiters.MatchAuth(r.Method, r.URL.Path), user); !ok {
		return ctx, w, nil, false
	}
	if !user.Role.AtLeast(minRole) {
		handlers.WriteError(ctx, w, dto.Forbidden(string(minRole)+" role required"))
		return ctx, w, nil, false
	}
	return ctx, w, user, true
}

// allow consumes a token of tier. It returns the writer carrying the rate
// limit headers, or false after writing a 429.
func (e *env) allow(ctx context.Context, w http.ResponseWriter, tier *ratelimit.Tier, user *identity.User) (http.ResponseWriter, bool) {
	if tier == nil {
		return w, true
	}
	id := reqctx.ClientIP(ctx)
	if tier.Scope == ratelimit.ScopeUser && user != nil {
		id = user.ID.String()
	}
	res := tier.Limiter.Allow(ratelimit.BuildKey(tier.Scope, id, tier.Name))
	if !res.Allowed {
		metrics.RateLimited.WithLabelValues(tier.Name).Inc()
		ratelimit.WriteHeaders(w, res)
		handlers.WriteError(ctx, w, dto.RateLimitExceeded(int(res.RetryAfter.Seconds())))
		return w, false
	}
	return ratelimit.NewResponseWriter(w, res), true
}

// finish records the changes of a mutating request in the audit history and
// writes the response.
//
// The commit is attempted even when the handler failed: a partial write is
// already on disk. Commit is a no-op when nothing changed.
func (e *env) finish(ctx context.Context, w http.ResponseWriter, r *http.Request, user *identity.User, out any, err error) {
	if user != nil && e.svc.Audit != nil && isMutating(r.Method) {
		if _, err := e.svc.Audit.Commit(ctx, handlers.AuditAuthor(user), r.Method+" "+r.URL.Path); err != nil {
			slog.ErrorContext(ctx, "Failed to commit changes", "err", err)
		}
	}
	if err != nil {
		handlers.WriteError(ctx, w, err)
		return
	}
	handlers.WriteJSON(ctx, w, http.StatusOK, out)
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// vendorScope resolves the vendor a request works within.
func vendorScope(user *identity.User, r *http.Request) (ksid.ID, error) {
	var requested ksid.ID
	if s := r.URL.Query().Get("vendor_id"); s != "" {
		id, err := ksid.Parse(s)
		if err != nil {
			return 0, dto.InvalidField("vendor_id", "not a valid identifier")
		}
		requested = id
	}
	if !user.VendorID.IsZero() {
		if !requested.IsZero() && requested != user.VendorID {
			return 0, dto.Forbidden("not a member of this vendor")
		}
		return user.VendorID, nil
	}
	if user.Role != identity.RoleAdmin {
		return 0, dto.Forbidden("not assigned to a vendor")
	}
	return requested, nil
}

// decode reads the JSON body, the path and query parameters and validates
// the result.
func decode[In any, PtrIn interface {
	*In
	dto.Validatable
}](w http.ResponseWriter, r *http.Request, maxBody int64) (PtrIn, error) {
	in := PtrIn(new(In))
	if r.Body != nil && r.Body != http.NoBody {
		body := http.MaxBytesReader(w, r.Body, maxBody)
		d := json.NewDecoder(body)
		d.DisallowUnknownFields()
		err := d.Decode(in)
		_ = body.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			if mbe := (*http.MaxBytesError)(nil); errors.As(err, &mbe) {
				return nil, dto.PayloadTooLarge(maxBody)
			}
			return nil, dto.BadRequest("Invalid request body").Wrap(err)
		}
	}
	populatePathParams(r, in)
	populateQueryParams(r, in)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

var idType = reflect.TypeFor[ksid.ID]()

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`. Unparsable IDs are left zero.
func populatePathParams(r *http.Request, input any) {
	elem := reflect.ValueOf(input).Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		v := r.PathValue(tag)
		if v == "" {
			continue
		}
		setScalar(elem.Field(i), v)
	}
}

// populateQueryParams extracts query parameters from the request and
// populates struct fields tagged with `query:"paramName"`.
//
// Slice fields collect every occurrence, splitting comma separated values.
// A map field tagged `query:"prefix.*"` collects the parameters starting
// with "prefix.", keyed by the remainder.
func populateQueryParams(r *http.Request, input any) {
	elem := reflect.ValueOf(input).Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		f := elem.Field(i)
		//nolint:exhaustive // Only the kinds used by request types are supported.
		switch field.Type.Kind() {
		case reflect.Map:
			prefix, ok := strings.CutSuffix(tag, "*")
			if !ok || field.Type.Key().Kind() != reflect.String || field.Type.Elem().Kind() != reflect.String {
				continue
			}
			m := reflect.MakeMap(field.Type)
			for k, vals := range query {
				if key, ok := strings.CutPrefix(k, prefix); ok && key != "" && len(vals) > 0 {
					m.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(vals[len(vals)-1]))
				}
			}
			if m.Len() > 0 {
				f.Set(m)
			}
		case reflect.Slice:
			if field.Type.Elem().Kind() != reflect.String {
				continue
			}
			var out []string
			for _, v := range query[tag] {
				for part := range strings.SplitSeq(v, ",") {
					if part = strings.TrimSpace(part); part != "" {
						out = append(out, part)
					}
				}
			}
			if len(out) > 0 {
				f.Set(reflect.ValueOf(out))
			}
		default:
			if v := query.Get(tag); v != "" {
				setScalar(f, v)
			}
		}
	}
}

func setScalar(f reflect.Value, v string) {
	if f.Type() == idType {
		if id, err := ksid.Parse(v); err == nil {
			f.Set(reflect.ValueOf(id))
		}
		return
	}
	//nolint:exhaustive // Only string and int are supported.
	switch f.Kind() {
	case reflect.String:
		f.SetString(v)
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.SetInt(n)
		}
	default:
	}
}
